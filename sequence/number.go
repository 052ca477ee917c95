// Package sequence owns generation of the human-facing document numbers that
// link leads, quotes, jobs and invoices (PVC-XXX, PVC-XXX-Q#, PVC-XXX-JOB,
// PVC-XXX-INV). Allocation is max-based and gap tolerant: deleted numbers are
// never reissued, and ordering is always numeric, never lexicographic.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// LeadPrefix is the root prefix of every numbering family.
const LeadPrefix = "PVC-"

// lead numbers are zero padded to at least this many digits; wider values
// (PVC-1000 and up) are emitted without truncation
const minSuffixWidth = 3

// ParseLeadNumber extracts the numeric suffix of a lead number.
// Malformed or foreign identifiers report ok=false and are simply excluded
// from max computation rather than failing the caller; legacy imports can
// coexist in the same table.
func ParseLeadNumber(number string) (int64, bool) {
	rest, found := strings.CutPrefix(number, LeadPrefix)
	if !found {
		return 0, false
	}
	return parseDigits(rest)
}

// ParseQuoteNumber extracts the per-lead sequence of a quote number.
// The prefix must exactly match "{leadNumber}-Q".
func ParseQuoteNumber(number string, leadNumber string) (int64, bool) {
	rest, found := strings.CutPrefix(number, leadNumber+"-Q")
	if !found {
		return 0, false
	}
	return parseDigits(rest)
}

// FormatLeadNumber renders a lead suffix, zero padded to three digits while
// the value fits (fmt never truncates wider values).
func FormatLeadNumber(suffix int64) string {
	return fmt.Sprintf("%s%0*d", LeadPrefix, minSuffixWidth, suffix)
}

// FormatQuoteNumber renders the n-th quote number under a lead.
func FormatQuoteNumber(leadNumber string, n int64) string {
	return fmt.Sprintf("%s-Q%d", leadNumber, n)
}

// DeriveJobNumbers derives the job and invoice numbers for a lead. Pure
// derivation: the lead number is already unique, so no query against existing
// job or invoice numbers is needed. At most one job per lead is enforced by
// the store's uniqueness constraint on lead_id.
func DeriveJobNumbers(leadNumber string) (jobNumber string, invoiceNumber string, err error) {
	if _, ok := ParseLeadNumber(leadNumber); !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidParent, leadNumber)
	}
	return leadNumber + "-JOB", leadNumber + "-INV", nil
}

// parseDigits accepts a non-empty, all-digit string.
func parseDigits(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
