package extract

import (
	"testing"

	"cotador/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchItems_ByName(t *testing.T) {
	requested := []models.QuotationItem{
		{Name: "Farinha de Trigo", Quantity: 100, Unit: "kg"},
		{Name: "Fermento", Quantity: 10, Unit: "kg"},
	}
	offered := []OfferItem{
		{Name: "fermento biológico", Price: 22.5, Available: true, Quantity: 10},
		{Name: "farinha", Price: 5.8, Available: true, Quantity: 100},
	}

	merged := MatchItems(requested, offered)

	require.Len(t, merged, 2)
	require.NotNil(t, merged[0].OfferedPrice)
	assert.Equal(t, 5.8, *merged[0].OfferedPrice)
	require.NotNil(t, merged[1].OfferedPrice)
	assert.Equal(t, 22.5, *merged[1].OfferedPrice)
}

func TestMatchItems_DiacriticInsensitive(t *testing.T) {
	requested := []models.QuotationItem{
		{Name: "Açúcar Cristal", Quantity: 50, Unit: "kg"},
	}
	offered := []OfferItem{
		{Name: "acucar", Price: 4.2, Available: true},
	}

	merged := MatchItems(requested, offered)

	require.NotNil(t, merged[0].OfferedPrice)
	assert.Equal(t, 4.2, *merged[0].OfferedPrice)
}

func TestMatchItems_PositionalFallback(t *testing.T) {
	requested := []models.QuotationItem{
		{Name: "Farinha", Quantity: 100},
		{Name: "Fermento", Quantity: 10},
	}
	// Model renamed everything; nothing matches by name
	offered := []OfferItem{
		{Name: "item 1", Price: 5.8, Available: true},
		{Name: "item 2", Price: 22.5, Available: false},
	}

	merged := MatchItems(requested, offered)

	require.NotNil(t, merged[0].OfferedPrice)
	assert.Equal(t, 5.8, *merged[0].OfferedPrice)
	require.NotNil(t, merged[1].OfferedPrice)
	assert.Equal(t, 22.5, *merged[1].OfferedPrice)
	assert.False(t, *merged[1].Available)
}

func TestMatchItems_MoreRequestedThanOffered(t *testing.T) {
	requested := []models.QuotationItem{
		{Name: "Farinha", Quantity: 100},
		{Name: "Fermento", Quantity: 10},
		{Name: "Sal", Quantity: 5},
	}
	offered := []OfferItem{
		{Name: "farinha", Price: 5.8, Available: true},
	}

	merged := MatchItems(requested, offered)

	require.NotNil(t, merged[0].OfferedPrice)
	assert.Nil(t, merged[1].OfferedPrice)
	assert.Nil(t, merged[2].OfferedPrice)
}

func TestMatchItems_DoesNotMutateInput(t *testing.T) {
	requested := []models.QuotationItem{{Name: "Farinha", Quantity: 100}}
	offered := []OfferItem{{Name: "farinha", Price: 5.8}}

	_ = MatchItems(requested, offered)

	assert.Nil(t, requested[0].OfferedPrice)
}

func TestDeriveTotal_PrefersModelTotal(t *testing.T) {
	offer := Offer{Total: 580}
	price := 999.0
	merged := []models.QuotationItem{{Name: "Farinha", Quantity: 1, OfferedPrice: &price}}

	assert.Equal(t, 580.0, DeriveTotal(offer, merged))
}

func TestDeriveTotal_SumsItemsWhenNoTotal(t *testing.T) {
	p1, p2 := 5.8, 22.5
	q2 := 8.0
	merged := []models.QuotationItem{
		{Name: "Farinha", Quantity: 100, OfferedPrice: &p1},
		// Offered quantity overrides the requested one
		{Name: "Fermento", Quantity: 10, OfferedPrice: &p2, OfferedQuantity: &q2},
		{Name: "Sal", Quantity: 5}, // no offer, ignored
	}

	assert.InDelta(t, 5.8*100+22.5*8, DeriveTotal(Offer{}, merged), 0.001)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "acucar cristal", foldName("  Açúcar Cristal "))
	assert.Equal(t, "farinha", foldName("FARINHA"))
}
