package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Store exposes the durable set of already issued numbers. Implemented by the
// gorm/MySQL entity store and by an in-memory map in tests; the allocator
// never talks to a concrete database.
type Store interface {
	// LeadNumbers returns every persisted lead number.
	LeadNumbers(ctx context.Context) ([]string, error)
	// QuoteNumbers returns every persisted quote number belonging to the lead.
	QuoteNumbers(ctx context.Context, leadNumber string) ([]string, error)
}

// allocation retry budget. Collisions beyond this are a correctness bug
// (e.g. a writer bypassing the uniqueness constraint), not contention.
const maxAllocateAttempts = 5

// serializes in-process allocations; cross-process races are handled by the
// redislock in the caller plus the uniqueness constraint.
var mutex sync.Mutex

// NextLeadNumber computes the next lead number: numeric max over all existing
// suffixes plus one. Empty store starts at PVC-001. Deleted numbers leave
// gaps that are never reused.
func NextLeadNumber(ctx context.Context, store Store) (string, error) {
	existing, err := store.LeadNumbers(ctx)
	if err != nil {
		return "", err
	}
	var max int64
	for _, n := range existing {
		if suffix, ok := ParseLeadNumber(n); ok && suffix > max {
			max = suffix
		}
	}
	return FormatLeadNumber(max + 1), nil
}

// NextQuoteNumber computes the next quote number under a lead, starting at Q1.
// The per-lead sequence is max-based, not count-based, so deleting a quote
// never frees its number.
func NextQuoteNumber(ctx context.Context, store Store, leadNumber string) (string, int, error) {
	if _, ok := ParseLeadNumber(leadNumber); !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidParent, leadNumber)
	}
	existing, err := store.QuoteNumbers(ctx, leadNumber)
	if err != nil {
		return "", 0, err
	}
	var max int64
	for _, n := range existing {
		if seq, ok := ParseQuoteNumber(n, leadNumber); ok && seq > max {
			max = seq
		}
	}
	return FormatQuoteNumber(leadNumber, max+1), int(max + 1), nil
}

// Allocate runs the optimistic allocate-and-insert cycle: compute the next
// number, attempt the insert, and on a uniqueness collision recompute from a
// fresh max and retry. The budget is small and exhaustion fails loudly with
// ErrCollision; nothing is partially persisted (insert runs in the caller's
// transaction).
func Allocate(ctx context.Context, next func(context.Context) (string, error), insert func(string) error) (string, error) {
	mutex.Lock()
	defer mutex.Unlock()

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		number, err := next(ctx)
		if err != nil {
			return "", err
		}
		err = insert(number)
		if err == nil {
			return number, nil
		}
		if !errors.Is(err, ErrNumberTaken) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w (after %d attempts)", ErrCollision, maxAllocateAttempts)
}
