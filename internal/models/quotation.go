package models

import "time"

// QuotationStatus is the lifecycle state of a quotation request
type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "draft"
	StatusPending   QuotationStatus = "pending"
	StatusSent      QuotationStatus = "sent"
	StatusAwaiting  QuotationStatus = "awaiting"
	StatusQuoted    QuotationStatus = "quoted"
	StatusConfirmed QuotationStatus = "confirmed"
	StatusCancelled QuotationStatus = "cancelled"
)

// transitions is the closed set of legal status changes. Any supplier reply
// collapses an open status directly to quoted, even when extraction failed;
// the needs_manual_review flag is the compensating signal.
var transitions = map[QuotationStatus][]QuotationStatus{
	StatusDraft:    {StatusPending, StatusCancelled},
	StatusPending:  {StatusSent, StatusQuoted, StatusCancelled},
	StatusSent:     {StatusAwaiting, StatusQuoted, StatusCancelled},
	StatusAwaiting: {StatusQuoted, StatusCancelled},
	StatusQuoted:   {StatusConfirmed, StatusCancelled},
}

// Valid reports whether s is a known status value
func (s QuotationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusAwaiting,
		StatusQuoted, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Open reports whether a quotation in this status can still be matched
// against an inbound supplier reply
func (s QuotationStatus) Open() bool {
	return s == StatusPending || s == StatusSent || s == StatusAwaiting
}

// Terminal reports whether the status accepts no further transitions
func (s QuotationStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is a legal transition
func (s QuotationStatus) CanTransition(next QuotationStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpenStatuses returns the statuses eligible for reply matching,
// for use in candidate queries
func OpenStatuses() []QuotationStatus {
	return []QuotationStatus{StatusPending, StatusSent, StatusAwaiting}
}

// QuotationItem is a single requested line item. The offer fields are nil
// until a supplier reply has been reconciled onto the quotation.
type QuotationItem struct {
	ProductID       string   `json:"product_id,omitempty"`
	Name            string   `json:"name"`
	Quantity        float64  `json:"quantity"`
	Unit            string   `json:"unit,omitempty"`
	OfferedPrice    *float64 `json:"offered_price,omitempty"`
	OfferedQuantity *float64 `json:"offered_quantity,omitempty"`
	Available       *bool    `json:"available,omitempty"`
}

// Quotation represents an outstanding request for supplier pricing and
// availability. Created when a shortage or manual action opens a request,
// mutated once by the reconciliation engine when the supplier replies,
// never hard-deleted.
type Quotation struct {
	ID                string          `db:"id" json:"id"`
	SupplierName      string          `db:"supplier_name" json:"supplier_name"`
	SupplierEmail     string          `db:"supplier_email" json:"supplier_email"`
	Status            QuotationStatus `db:"status" json:"status"`
	Items             []QuotationItem `db:"-" json:"items"`
	ItemsJSON         string          `db:"items" json:"-"`
	QuotedTotal       *float64        `db:"quoted_total" json:"quoted_total,omitempty"`
	DeliveryDays      *int            `db:"delivery_days" json:"delivery_days,omitempty"`
	DeliveryDate      *string         `db:"delivery_date" json:"delivery_date,omitempty"`
	PaymentTerms      *string         `db:"payment_terms" json:"payment_terms,omitempty"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	SuggestedAction   *string         `db:"suggested_action" json:"suggested_action,omitempty"`
	ReplyMessageID    *string         `db:"reply_message_id" json:"reply_message_id,omitempty"`
	NeedsManualReview bool            `db:"needs_manual_review" json:"needs_manual_review"`
	RawAIResponse     *string         `db:"raw_ai_response" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// QuoteMerge carries the fields the reconciliation engine writes onto a
// quotation when claiming it for an inbound reply. The claim is a single
// conditional update: it only succeeds while the quotation is still open
// and unclaimed.
type QuoteMerge struct {
	ReplyMessageID    string
	Items             []QuotationItem
	QuotedTotal       *float64
	DeliveryDays      *int
	DeliveryDate      *string
	PaymentTerms      *string
	Notes             *string
	SuggestedAction   *string
	NeedsManualReview bool
	RawAIResponse     string
}
