package outbound

import (
	"testing"

	"cotador/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSendQuotationRequest_RequiresAPIKey(t *testing.T) {
	m := NewMailer("", "compras@cotador.app", "Compras")

	err := m.SendQuotationRequest(&models.Quotation{
		ID:            "q-1",
		SupplierEmail: "fornecedor@padaria.com",
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestSendQuotationRequest_RequiresSupplierEmail(t *testing.T) {
	m := NewMailer("SG.key", "compras@cotador.app", "Compras")

	err := m.SendQuotationRequest(&models.Quotation{ID: "q-1"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no supplier email")
}

func TestBuildRequestBody(t *testing.T) {
	q := &models.Quotation{
		ID:           "550e8400-e29b-41d4-a716-446655440000",
		SupplierName: "Moinho Paulista",
		Items: []models.QuotationItem{
			{Name: "Farinha de Trigo", Quantity: 100, Unit: "kg"},
			{Name: "Fermento", Quantity: 10, Unit: "kg"},
		},
	}

	body := buildRequestBody(q)

	assert.Contains(t, body, "Olá Moinho Paulista")
	assert.Contains(t, body, "1. Farinha de Trigo - 100.00 kg")
	assert.Contains(t, body, "2. Fermento - 10.00 kg")
	assert.Contains(t, body, "prazo de entrega")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "550e8400", shortID("550e8400-e29b-41d4-a716-446655440000"))
	assert.Equal(t, "q-1", shortID("q-1"))
}
