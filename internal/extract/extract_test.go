package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"cotador/internal/models"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter returns a canned completion or an error
type fakeCompleter struct {
	content string
	err     error
	noChoi  bool

	gotMessages []openai.ChatCompletionMessage
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error) {
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.noChoi {
		return &openai.ChatCompletionResponse{}, nil
	}
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

const validOfferJSON = `{
	"hasQuote": true,
	"items": [{"name": "Farinha", "price": 5.8, "available": true, "quantity": 100}],
	"total": 580,
	"deliveryDays": 3,
	"paymentTerms": "30 dias",
	"hasProblems": false,
	"suggestedAction": "confirm"
}`

func requestedItems() []models.QuotationItem {
	return []models.QuotationItem{
		{Name: "Farinha", Quantity: 100, Unit: "kg"},
	}
}

func TestExtract_Success(t *testing.T) {
	llm := &fakeCompleter{content: validOfferJSON}
	e := New(llm, 10*time.Second)

	res := e.Extract(context.Background(), "Farinha R$5,80/kg, 100kg disponível, entrega 3 dias", requestedItems())

	require.True(t, res.Success)
	assert.True(t, res.Offer.HasQuote)
	assert.Equal(t, 580.0, res.Offer.Total)
	assert.Equal(t, 3, res.Offer.DeliveryDays)
	assert.Equal(t, ActionConfirm, res.Offer.SuggestedAction)
	require.Len(t, res.Offer.Items, 1)
	assert.Equal(t, 5.8, res.Offer.Items[0].Price)
	assert.Equal(t, validOfferJSON, res.RawResponse)

	// Prompt carries the requested items as context
	require.Len(t, llm.gotMessages, 2)
	assert.Contains(t, llm.gotMessages[1].Content, "Farinha")
	assert.Contains(t, llm.gotMessages[1].Content, "100.00 kg")
}

func TestExtract_FencedOutputAccepted(t *testing.T) {
	llm := &fakeCompleter{content: "```json\n" + validOfferJSON + "\n```"}
	e := New(llm, 10*time.Second)

	res := e.Extract(context.Background(), "body", requestedItems())

	require.True(t, res.Success)
	assert.True(t, res.Offer.HasQuote)
}

func TestExtract_Degradation(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"completion error", &fakeCompleter{err: errors.New("rate limited")}},
		{"no choices", &fakeCompleter{noChoi: true}},
		{"invalid JSON", &fakeCompleter{content: "Desculpe, não entendi o email."}},
		{"truncated JSON", &fakeCompleter{content: `{"hasQuote": true, "items": [`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.llm, 10*time.Second)

			res := e.Extract(context.Background(), "body", requestedItems())

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Err)
			// Safe default payload
			assert.False(t, res.Offer.HasQuote)
			assert.True(t, res.Offer.HasProblems)
			assert.Equal(t, ActionWait, res.Offer.SuggestedAction)
		})
	}
}

func TestParse_UnknownActionDefaultsToWait(t *testing.T) {
	res := Parse(`{"hasQuote": true, "suggestedAction": "escalate"}`)

	require.True(t, res.Success)
	assert.Equal(t, ActionWait, res.Offer.SuggestedAction)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.input))
		})
	}
}
