package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vonnie2507/Probuild-ERP-Replit/sequence"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// numberStore adapts the entity tables to sequence.Store. It reads through
// the supplied gorm handle so an allocation inside a transaction sees rows
// written earlier in the same transaction.
type numberStore struct {
	db *gorm.DB
}

func NewNumberStore(db *gorm.DB) sequence.Store {
	return numberStore{db: db}
}

func (s numberStore) LeadNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	if err := s.db.WithContext(ctx).Model(&Lead{}).Pluck("lead_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

func (s numberStore) QuoteNumbers(ctx context.Context, leadNumber string) ([]string, error) {
	var numbers []string
	if err := s.db.WithContext(ctx).Model(&Quote{}).
		Where("quote_number LIKE ?", leadNumber+"-Q%").
		Pluck("quote_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

const mysqlDuplicateEntry = 1062

// wrapNumberInsertErr translates a uniqueness-constraint violation on a
// number column into sequence.ErrNumberTaken so the allocator retries with a
// fresh max; any other error passes through untouched.
func wrapNumberInsertErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", sequence.ErrNumberTaken, err)
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", sequence.ErrNumberTaken, err)
	}
	return err
}
