// Package outbound sends quotation request emails to suppliers via
// SendGrid.
package outbound

import (
	"fmt"
	"strings"

	"cotador/internal/models"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends quotation requests from the purchasing address
type Mailer struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewMailer creates a mailer. Sending fails cleanly when the API key is
// missing; the quotation then stays pending instead of crashing the flow.
func NewMailer(apiKey, fromEmail, fromName string) *Mailer {
	if fromName == "" {
		fromName = "Compras"
	}
	return &Mailer{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendQuotationRequest emails the supplier the list of requested items
func (m *Mailer) SendQuotationRequest(q *models.Quotation) error {
	if m.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}
	if q.SupplierEmail == "" {
		return fmt.Errorf("quotation %s has no supplier email", q.ID)
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(q.SupplierName, q.SupplierEmail)
	subject := fmt.Sprintf("Solicitação de cotação #%s", shortID(q.ID))
	body := buildRequestBody(q)

	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send quotation request: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected quotation request: status %d", response.StatusCode)
	}

	return nil
}

// buildRequestBody renders the plain-text request the supplier replies to
func buildRequestBody(q *models.Quotation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Olá %s,\n\n", q.SupplierName))
	sb.WriteString("Gostaríamos de receber uma cotação para os itens abaixo:\n\n")

	for i, item := range q.Items {
		sb.WriteString(fmt.Sprintf("%d. %s - %.2f %s\n", i+1, item.Name, item.Quantity, item.Unit))
	}

	sb.WriteString("\nPor favor informe preço unitário, disponibilidade, prazo de entrega e condições de pagamento.\n\n")
	sb.WriteString("Obrigado,\nEquipe de Compras")

	return sb.String()
}

// shortID keeps email subjects readable for UUID quotation ids
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
