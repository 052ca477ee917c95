package models

import (
	"context"
	"errors"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/Vonnie2507/Probuild-ERP-Replit/sequence"
	"github.com/Vonnie2507/Probuild-ERP-Replit/utils"
	"github.com/shopspring/decimal"
)

type Quote struct {
	ID             int             `gorm:"primary_key" json:"id"`
	QuoteNumber    string          `gorm:"size:30;not null;uniqueIndex" json:"quote_number"`
	LeadId         int             `gorm:"index;not null" json:"lead_id" binding:"required"`
	Lead           *Lead           `json:"lead,omitempty"`
	SequenceInLead int             `gorm:"not null" json:"sequence_in_lead"`
	Status         QuoteStatus     `gorm:"type:enum('Draft','Sent','Approved','Rejected','Expired');not null;default:'Draft'" json:"status"`
	ValidUntil     *time.Time      `json:"valid_until"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes          string          `gorm:"type:text" json:"notes"`
	Items          []QuoteItem     `gorm:"foreignKey:QuoteId" json:"items"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type QuoteItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	QuoteId     int             `gorm:"index;not null" json:"quote_id"`
	Description string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

type NewQuote struct {
	LeadId     int             `json:"lead_id" binding:"required"`
	ValidUntil *time.Time      `json:"valid_until"`
	Notes      string          `json:"notes"`
	Items      []*NewQuoteItem `json:"items"`
}

type NewQuoteItem struct {
	Description string          `json:"description" binding:"required"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func mapQuoteItems(input []*NewQuoteItem) ([]QuoteItem, decimal.Decimal, error) {
	items := make([]QuoteItem, 0, len(input))
	subtotal := decimal.Zero
	for _, in := range input {
		if in.Qty.IsNegative() || in.UnitPrice.IsNegative() {
			return nil, decimal.Zero, errors.New("qty and unit_price cannot be negative")
		}
		amount := in.Qty.Mul(in.UnitPrice)
		items = append(items, QuoteItem{
			Description: in.Description,
			Qty:         in.Qty,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
		subtotal = subtotal.Add(amount)
	}
	return items, subtotal, nil
}

// CreateQuote allocates the next {leadNumber}-Q{n} inside one transaction and
// stamps an early-stage lead as Quoted. The per-lead redis lock plus the
// unique index on quote_number keep concurrent quoting under one lead safe.
func CreateQuote(ctx context.Context, input *NewQuote) (*Quote, error) {

	lead, err := utils.FetchModel[Lead](ctx, input.LeadId)
	if err != nil {
		return nil, err
	}

	items, subtotal, err := mapQuoteItems(input.Items)
	if err != nil {
		return nil, err
	}

	release, _ := utils.SequenceLock(ctx, "quote:"+lead.LeadNumber)
	defer release()

	db := config.GetDB()
	var quote Quote

	_, err = sequence.Allocate(ctx,
		func(ctx context.Context) (string, error) {
			number, _, err := sequence.NextQuoteNumber(ctx, NewNumberStore(db), lead.LeadNumber)
			return number, err
		},
		func(number string) error {
			seq, _ := sequence.ParseQuoteNumber(number, lead.LeadNumber)
			quote = Quote{
				QuoteNumber:    number,
				LeadId:         lead.ID,
				SequenceInLead: int(seq),
				Status:         QuoteStatusDraft,
				ValidUntil:     input.ValidUntil,
				Subtotal:       subtotal,
				Total:          subtotal,
				Notes:          input.Notes,
				Items:          items,
			}
			tx := db.WithContext(ctx).Begin()
			if err := tx.Create(&quote).Error; err != nil {
				tx.Rollback()
				return wrapNumberInsertErr(err)
			}
			if lead.Stage == LeadStageNew || lead.Stage == LeadStageContacted {
				if err := tx.Model(&Lead{}).Where("id = ?", lead.ID).
					Update("Stage", LeadStageQuoted).Error; err != nil {
					tx.Rollback()
					return err
				}
			}
			return tx.Commit().Error
		},
	)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// UpdateQuote replaces draft content. QuoteNumber and SequenceInLead are
// immutable; non-draft quotes are read-only.
func UpdateQuote(ctx context.Context, id int, input *NewQuote) (*Quote, error) {

	quote, err := utils.FetchModel[Quote](ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if quote.Status != QuoteStatusDraft {
		return nil, errors.New("cannot update a quote after it has been sent")
	}
	if quote.LeadId != input.LeadId {
		return nil, errors.New("quote cannot move to another lead")
	}

	items, subtotal, err := mapQuoteItems(input.Items)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&quote).Updates(map[string]interface{}{
		"ValidUntil": input.ValidUntil,
		"Notes":      input.Notes,
		"Subtotal":   subtotal,
		"Total":      subtotal,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("quote_id = ?", quote.ID).Delete(&QuoteItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range items {
		items[i].QuoteId = quote.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	quote.Items = items
	return quote, nil
}

// UpdateQuoteStatus applies a sales-flow transition. Approving a quote also
// marks its lead Approved.
func UpdateQuoteStatus(ctx context.Context, id int, status QuoteStatus) (*Quote, error) {

	if !status.Valid() {
		return nil, errors.New("invalid quote status")
	}

	quote, err := utils.FetchModel[Quote](ctx, id)
	if err != nil {
		return nil, err
	}
	if !quote.Status.CanTransitionTo(status) {
		return nil, errors.New("invalid status transition")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&quote).Update("Status", status).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if status == QuoteStatusApproved {
		if err := tx.Model(&Lead{}).Where("id = ?", quote.LeadId).
			Update("Stage", LeadStageApproved).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	quote.Status = status
	return quote, nil
}

// DeleteQuote removes a quote; its sequence number is never reissued.
func DeleteQuote(ctx context.Context, id int) (*Quote, error) {

	result, err := utils.FetchModel[Quote](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Do not delete if a job was created from this quote
	var count int64
	if err = db.WithContext(ctx).Model(&Job{}).
		Where("quote_id = ?", result.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by job")
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("quote_id = ?", result.ID).Delete(&QuoteItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetQuote(ctx context.Context, id int) (*Quote, error) {
	return utils.FetchModel[Quote](ctx, id, "Items", "Lead")
}

func GetQuotes(ctx context.Context, leadId *int) ([]*Quote, error) {

	db := config.GetDB()
	var results []*Quote

	dbCtx := db.WithContext(ctx).Preload("Items")
	if leadId != nil && *leadId > 0 {
		dbCtx = dbCtx.Where("lead_id = ?", *leadId)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
