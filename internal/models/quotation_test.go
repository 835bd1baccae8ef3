package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    QuotationStatus
		to      QuotationStatus
		allowed bool
	}{
		{"draft to pending", StatusDraft, StatusPending, true},
		{"pending to sent", StatusPending, StatusSent, true},
		{"sent to awaiting", StatusSent, StatusAwaiting, true},
		{"awaiting to quoted", StatusAwaiting, StatusQuoted, true},
		{"quoted to confirmed", StatusQuoted, StatusConfirmed, true},
		{"quoted to cancelled", StatusQuoted, StatusCancelled, true},
		// a reply collapses any open status straight to quoted
		{"pending to quoted", StatusPending, StatusQuoted, true},
		{"sent to quoted", StatusSent, StatusQuoted, true},
		{"draft to quoted", StatusDraft, StatusQuoted, false},
		{"quoted to sent", StatusQuoted, StatusSent, false},
		{"confirmed is terminal", StatusConfirmed, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"unknown status", QuotationStatus("bogus"), StatusQuoted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestQuotationStatus_Open(t *testing.T) {
	assert.True(t, StatusPending.Open())
	assert.True(t, StatusSent.Open())
	assert.True(t, StatusAwaiting.Open())
	assert.False(t, StatusDraft.Open())
	assert.False(t, StatusQuoted.Open())
	assert.False(t, StatusConfirmed.Open())
	assert.False(t, StatusCancelled.Open())
}

func TestQuotationStatus_Terminal(t *testing.T) {
	assert.True(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusQuoted.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestQuotationStatus_Valid(t *testing.T) {
	for _, s := range []QuotationStatus{
		StatusDraft, StatusPending, StatusSent, StatusAwaiting,
		StatusQuoted, StatusConfirmed, StatusCancelled,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, QuotationStatus("").Valid())
	assert.False(t, QuotationStatus("open").Valid())
}

func TestOpenStatuses(t *testing.T) {
	open := OpenStatuses()
	assert.Len(t, open, 3)
	for _, s := range open {
		assert.True(t, s.Open())
	}
}
