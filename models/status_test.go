package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestQuoteStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to QuoteStatus
		want     bool
	}{
		{QuoteStatusDraft, QuoteStatusSent, true},
		{QuoteStatusSent, QuoteStatusApproved, true},
		{QuoteStatusSent, QuoteStatusRejected, true},
		{QuoteStatusSent, QuoteStatusExpired, true},
		{QuoteStatusDraft, QuoteStatusApproved, false},
		{QuoteStatusApproved, QuoteStatusRejected, false},
		{QuoteStatusRejected, QuoteStatusSent, false},
		{QuoteStatusExpired, QuoteStatusDraft, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestJobStatusForwardOnly(t *testing.T) {
	if !JobStatusScheduled.CanTransitionTo(JobStatusCompleted) {
		t.Error("skipping ahead must be allowed")
	}
	if JobStatusInstalled.CanTransitionTo(JobStatusInProduction) {
		t.Error("moving backwards must be refused")
	}
	if JobStatusCompleted.CanTransitionTo(JobStatusCompleted) {
		t.Error("self transition must be refused")
	}
	if JobStatus("Bogus").CanTransitionTo(JobStatusCompleted) {
		t.Error("unknown status must be refused")
	}
}

func TestDeriveInvoiceStatus(t *testing.T) {
	amount := decimal.NewFromInt(1000)

	if got := deriveInvoiceStatus(InvoiceStatusUnpaid, amount, decimal.Zero); got != InvoiceStatusUnpaid {
		t.Errorf("no payment: got %s", got)
	}
	if got := deriveInvoiceStatus(InvoiceStatusUnpaid, amount, decimal.NewFromInt(400)); got != InvoiceStatusPartiallyPaid {
		t.Errorf("partial payment: got %s", got)
	}
	if got := deriveInvoiceStatus(InvoiceStatusUnpaid, amount, decimal.NewFromInt(1000)); got != InvoiceStatusPaid {
		t.Errorf("full payment: got %s", got)
	}
	if got := deriveInvoiceStatus(InvoiceStatusUnpaid, amount, decimal.NewFromInt(1200)); got != InvoiceStatusPaid {
		t.Errorf("overpayment: got %s", got)
	}
	// Overdue stays sticky until the balance clears.
	if got := deriveInvoiceStatus(InvoiceStatusOverdue, amount, decimal.NewFromInt(400)); got != InvoiceStatusOverdue {
		t.Errorf("partial payment on overdue: got %s", got)
	}
	if got := deriveInvoiceStatus(InvoiceStatusOverdue, amount, amount); got != InvoiceStatusPaid {
		t.Errorf("full payment on overdue: got %s", got)
	}
}
