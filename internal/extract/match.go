package extract

import (
	"strings"
	"unicode"

	"cotador/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics so "Farinha de Trigo" matches
// "farinha de trigo" regardless of accent usage in the reply
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// MatchItems maps extracted offer items back onto the requested items by
// bidirectional fuzzy name containment, falling back to positional
// alignment when no name matches. Returns a merged copy of the requested
// items; the originals are not modified.
//
// Known heuristic: ambiguous when one batch requests several
// similarly-named items ("farinha de trigo" vs "farinha de rosca"); the
// first containment hit wins.
func MatchItems(requested []models.QuotationItem, offered []OfferItem) []models.QuotationItem {
	merged := make([]models.QuotationItem, len(requested))
	copy(merged, requested)

	used := make([]bool, len(offered))
	matchedAny := false

	for i := range merged {
		reqName := foldName(merged[i].Name)
		for j, off := range offered {
			if used[j] {
				continue
			}
			offName := foldName(off.Name)
			if reqName == "" || offName == "" {
				continue
			}
			if strings.Contains(reqName, offName) || strings.Contains(offName, reqName) {
				applyOffer(&merged[i], off)
				used[j] = true
				matchedAny = true
				break
			}
		}
	}

	// Positional fallback when the model renamed everything
	if !matchedAny {
		for i := range merged {
			if i >= len(offered) {
				break
			}
			applyOffer(&merged[i], offered[i])
		}
	}

	return merged
}

func applyOffer(item *models.QuotationItem, off OfferItem) {
	price := off.Price
	available := off.Available
	item.OfferedPrice = &price
	item.Available = &available
	if off.Quantity > 0 {
		qty := off.Quantity
		item.OfferedQuantity = &qty
	}
}

// DeriveTotal computes the quoted total: the model-reported total when
// present, otherwise the sum of offered price times quantity over the
// merged items (requested quantity when the offer did not state one).
func DeriveTotal(offer Offer, merged []models.QuotationItem) float64 {
	if offer.Total > 0 {
		return offer.Total
	}

	var total float64
	for _, item := range merged {
		if item.OfferedPrice == nil {
			continue
		}
		qty := item.Quantity
		if item.OfferedQuantity != nil && *item.OfferedQuantity > 0 {
			qty = *item.OfferedQuantity
		}
		total += *item.OfferedPrice * qty
	}
	return total
}
