package models

import (
	"context"
	"errors"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/Vonnie2507/Probuild-ERP-Replit/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Invoice is created by CreateJob alongside its job and carries the derived
// {lead}-INV number. Only the money fields and status move after creation.
type Invoice struct {
	ID            int              `gorm:"primary_key" json:"id"`
	InvoiceNumber string           `gorm:"size:30;not null;uniqueIndex" json:"invoice_number"`
	JobId         int              `gorm:"not null;uniqueIndex" json:"job_id"`
	Job           *Job             `json:"job,omitempty"`
	Amount        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AmountPaid    decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	Status        InvoiceStatus    `gorm:"type:enum('Unpaid','PartiallyPaid','Paid','Overdue');not null;default:'Unpaid'" json:"status"`
	DueDate       *time.Time       `json:"due_date"`
	Payments      []InvoicePayment `gorm:"foreignKey:InvoiceId" json:"payments"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoicePayment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method    string          `gorm:"size:50" json:"method"`
	Reference string          `gorm:"size:100" json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInvoicePayment struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	PaidAt    *time.Time      `json:"paid_at"`
}

// deriveInvoiceStatus keeps Overdue sticky until the balance clears.
func deriveInvoiceStatus(current InvoiceStatus, amount, paid decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(amount) && amount.IsPositive():
		return InvoiceStatusPaid
	case paid.IsPositive():
		if current == InvoiceStatusOverdue {
			return InvoiceStatusOverdue
		}
		return InvoiceStatusPartiallyPaid
	default:
		return current
	}
}

// RecordInvoicePayment appends a payment row and rolls AmountPaid and Status
// forward in the same transaction. The invoice row is re-read under a row
// lock so concurrent payments serialize instead of overwriting each other's
// running total.
func RecordInvoicePayment(ctx context.Context, id int, input *NewInvoicePayment) (*Invoice, error) {

	if !input.Amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	var invoice Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if invoice.Status == InvoiceStatusPaid {
		tx.Rollback()
		return nil, errors.New("invoice already paid")
	}
	if !invoice.Amount.IsPositive() {
		tx.Rollback()
		return nil, errors.New("invoice has no balance due")
	}

	paidAt := time.Now()
	if input.PaidAt != nil {
		paidAt = *input.PaidAt
	}
	payment := InvoicePayment{
		InvoiceId: invoice.ID,
		Amount:    input.Amount,
		Method:    input.Method,
		Reference: input.Reference,
		PaidAt:    paidAt,
	}

	newPaid := invoice.AmountPaid.Add(input.Amount)
	newStatus := deriveInvoiceStatus(invoice.Status, invoice.Amount, newPaid)

	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&invoice).Updates(map[string]interface{}{
		"AmountPaid": newPaid,
		"Status":     newStatus,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invoice.AmountPaid = newPaid
	invoice.Status = newStatus
	return &invoice, nil
}

func UpdateInvoiceDueDate(ctx context.Context, id int, dueDate *time.Time) (*Invoice, error) {

	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&invoice).Update("DueDate", dueDate).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// MarkInvoiceOverdue flags an unpaid or partially paid invoice past its due
// date. Paid invoices never go overdue.
func MarkInvoiceOverdue(ctx context.Context, id int) (*Invoice, error) {

	invoice, err := utils.FetchModel[Invoice](ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == InvoiceStatusPaid {
		return nil, errors.New("invoice already paid")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&invoice).
		Update("Status", InvoiceStatusOverdue).Error; err != nil {
		return nil, err
	}
	invoice.Status = InvoiceStatusOverdue
	return invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	return utils.FetchModel[Invoice](ctx, id, "Payments", "Job")
}

func GetInvoices(ctx context.Context, status *InvoiceStatus) ([]*Invoice, error) {

	db := config.GetDB()
	var results []*Invoice

	dbCtx := db.WithContext(ctx).Preload("Payments")
	if status != nil && *status != "" {
		if !status.Valid() {
			return nil, errors.New("invalid invoice status")
		}
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
