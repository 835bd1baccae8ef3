// Package extract turns free-form supplier reply text into a structured
// offer by way of an LLM completion. Model output is untrusted: it is
// parsed against a fixed schema and any failure degrades to a safe default
// result instead of an error, so a bad completion never blocks
// reconciliation.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cotador/internal/models"

	"github.com/sashabaranov/go-openai"
)

// Suggested next actions the model may propose
const (
	ActionConfirm   = "confirm"
	ActionNegotiate = "negotiate"
	ActionCancel    = "cancel"
	ActionWait      = "wait"
)

// Completer is the slice of the OpenAI client the extractor needs
type Completer interface {
	CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error)
}

// OfferItem is one line item as reported by the model
type OfferItem struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
	Quantity  float64 `json:"quantity"`
}

// Offer is the structured form of a supplier reply
type Offer struct {
	HasQuote        bool        `json:"hasQuote"`
	Items           []OfferItem `json:"items"`
	Total           float64     `json:"total"`
	DeliveryDate    string      `json:"deliveryDate"`
	DeliveryDays    int         `json:"deliveryDays"`
	PaymentTerms    string      `json:"paymentTerms"`
	HasProblems     bool        `json:"hasProblems"`
	Problems        []string    `json:"problems"`
	SuggestedAction string      `json:"suggestedAction"`
	Notes           string      `json:"notes"`
}

// Result is the outcome of one extraction attempt. On failure Offer holds
// the safe defaults (no quote, has problems, suggested action "wait") and
// Err describes what went wrong.
type Result struct {
	Success     bool
	Offer       Offer
	RawResponse string
	Err         string
}

// Extractor calls the LLM with a bounded timeout per attempt
type Extractor struct {
	llm       Completer
	timeout   time.Duration
	maxTokens int
}

// New creates an extractor. A non-positive timeout falls back to 45s.
func New(llm Completer, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Extractor{
		llm:       llm,
		timeout:   timeout,
		maxTokens: 1000,
	}
}

// Extract runs one extraction attempt against the email body, using the
// requested items as context for the model. Never returns an error: model,
// network and parse failures all collapse into a failure Result.
func (e *Extractor) Extract(ctx context.Context, emailBody string, items []models.QuotationItem) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: buildPrompt(emailBody, items),
		},
	}

	resp, err := e.llm.CreateChatCompletion(ctx, messages, e.maxTokens, 0.1)
	if err != nil {
		return failureResult("", fmt.Sprintf("completion failed: %v", err))
	}
	if len(resp.Choices) == 0 {
		return failureResult("", "completion returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	return Parse(raw)
}

// Parse validates a raw model answer against the offer schema. Exposed
// separately so the parsing path is testable without a live completion.
func Parse(raw string) Result {
	cleaned := stripCodeFences(raw)

	var offer Offer
	if err := json.Unmarshal([]byte(cleaned), &offer); err != nil {
		return failureResult(raw, fmt.Sprintf("invalid JSON from model: %v", err))
	}

	offer.SuggestedAction = normalizeAction(offer.SuggestedAction)

	return Result{
		Success:     true,
		Offer:       offer,
		RawResponse: raw,
	}
}

// failureResult builds the safe default payload for a failed attempt
func failureResult(raw, errMsg string) Result {
	return Result{
		Success: false,
		Offer: Offer{
			HasQuote:        false,
			HasProblems:     true,
			Problems:        []string{"automatic extraction failed"},
			SuggestedAction: ActionWait,
		},
		RawResponse: raw,
		Err:         errMsg,
	}
}

// stripCodeFences removes a markdown code fence wrapper the model often
// adds despite being told not to
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalizeAction clamps the suggested action to the known enum, defaulting
// to wait
func normalizeAction(action string) string {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionConfirm:
		return ActionConfirm
	case ActionNegotiate:
		return ActionNegotiate
	case ActionCancel:
		return ActionCancel
	default:
		return ActionWait
	}
}

const systemPrompt = `Você é um assistente de compras que extrai dados estruturados de respostas de fornecedores. Responda SOMENTE com um objeto JSON válido, sem texto adicional e sem cercas de código.`

// buildPrompt renders the user message: the reply body plus the requested
// items the model should look for, and the exact output schema.
func buildPrompt(emailBody string, items []models.QuotationItem) string {
	var sb strings.Builder

	sb.WriteString("Analise a resposta do fornecedor abaixo e extraia a cotação.\n\n")
	sb.WriteString("Itens solicitados:\n")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s - %.2f %s\n", i+1, item.Name, item.Quantity, item.Unit))
	}

	sb.WriteString("\nEmail do fornecedor:\n\"\"\"\n")
	sb.WriteString(emailBody)
	sb.WriteString("\n\"\"\"\n\n")

	sb.WriteString(`Retorne exatamente este JSON:
{
  "hasQuote": boolean,
  "items": [{"name": string, "price": number, "available": boolean, "quantity": number}],
  "total": number,
  "deliveryDate": string,
  "deliveryDays": number,
  "paymentTerms": string,
  "hasProblems": boolean,
  "problems": [string],
  "suggestedAction": "confirm" | "negotiate" | "cancel" | "wait",
  "notes": string
}

Regras:
- "price" é o preço unitário em reais.
- "hasQuote" é true somente se o email contém preços.
- "hasProblems" é true se há itens indisponíveis, prazos ruins ou condições inesperadas.
- Use 0 ou "" para campos que o email não menciona.`)

	return sb.String()
}
