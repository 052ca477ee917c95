package sequence_test

import (
	"errors"
	"testing"

	"github.com/Vonnie2507/Probuild-ERP-Replit/sequence"
)

func TestParseLeadNumber(t *testing.T) {
	cases := []struct {
		in     string
		suffix int64
		ok     bool
	}{
		{"PVC-001", 1, true},
		{"PVC-042", 42, true},
		{"PVC-999", 999, true},
		{"PVC-1000", 1000, true},
		{"PVC-12", 12, true}, // legacy import, narrower than the usual padding
		{"PVC-", 0, false},
		{"PVC-12a", 0, false},
		{"PVC-1-Q2", 0, false},
		{"JOB-001", 0, false},
		{"not-a-number", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		suffix, ok := sequence.ParseLeadNumber(c.in)
		if ok != c.ok || suffix != c.suffix {
			t.Errorf("ParseLeadNumber(%q) = (%d, %v), want (%d, %v)", c.in, suffix, ok, c.suffix, c.ok)
		}
	}
}

func TestParseQuoteNumber(t *testing.T) {
	cases := []struct {
		in   string
		lead string
		seq  int64
		ok   bool
	}{
		{"PVC-005-Q1", "PVC-005", 1, true},
		{"PVC-005-Q12", "PVC-005", 12, true},
		{"PVC-005-Q", "PVC-005", 0, false},
		{"PVC-005-JOB", "PVC-005", 0, false},
		{"PVC-050-Q1", "PVC-005", 0, false}, // different lead family
		{"PVC-005-Q1x", "PVC-005", 0, false},
	}
	for _, c := range cases {
		seq, ok := sequence.ParseQuoteNumber(c.in, c.lead)
		if ok != c.ok || seq != c.seq {
			t.Errorf("ParseQuoteNumber(%q, %q) = (%d, %v), want (%d, %v)", c.in, c.lead, seq, ok, c.seq, c.ok)
		}
	}
}

func TestFormatLeadNumber_Padding(t *testing.T) {
	cases := map[int64]string{
		1:     "PVC-001",
		42:    "PVC-042",
		999:   "PVC-999",
		1000:  "PVC-1000",
		12345: "PVC-12345",
	}
	for suffix, want := range cases {
		if got := sequence.FormatLeadNumber(suffix); got != want {
			t.Errorf("FormatLeadNumber(%d) = %q, want %q", suffix, got, want)
		}
	}
}

func TestDeriveJobNumbers(t *testing.T) {
	job, invoice, err := sequence.DeriveJobNumbers("PVC-007")
	if err != nil {
		t.Fatalf("DeriveJobNumbers: %v", err)
	}
	if job != "PVC-007-JOB" {
		t.Errorf("job number = %q, want PVC-007-JOB", job)
	}
	if invoice != "PVC-007-INV" {
		t.Errorf("invoice number = %q, want PVC-007-INV", invoice)
	}
}

func TestDeriveJobNumbers_InvalidParent(t *testing.T) {
	_, _, err := sequence.DeriveJobNumbers("not-a-number")
	if !errors.Is(err, sequence.ErrInvalidParent) {
		t.Fatalf("err = %v, want ErrInvalidParent", err)
	}
}
