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

// Job and its invoice are created together; both numbers are pure derivations
// of the lead number ({lead}-JOB, {lead}-INV), so creation needs no max
// query. The unique index on lead_id enforces at most one job per lead.
type Job struct {
	ID            int        `gorm:"primary_key" json:"id"`
	JobNumber     string     `gorm:"size:30;not null;uniqueIndex" json:"job_number"`
	LeadId        int        `gorm:"not null;uniqueIndex" json:"lead_id" binding:"required"`
	Lead          *Lead      `json:"lead,omitempty"`
	QuoteId       int        `gorm:"index;default:0" json:"quote_id"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Status        JobStatus  `gorm:"type:enum('Scheduled','InProduction','ReadyToInstall','Installed','Completed');not null;default:'Scheduled'" json:"status"`
	Notes         string     `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewJob struct {
	LeadId        int             `json:"lead_id" binding:"required"`
	QuoteId       int             `json:"quote_id"`
	ScheduledDate *time.Time      `json:"scheduled_date"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes"`
}

// CreateJob persists the job and its invoice atomically. When the job is
// raised from an approved quote the invoice amount defaults to the quote
// total.
func CreateJob(ctx context.Context, input *NewJob) (*Job, error) {

	lead, err := utils.FetchModel[Lead](ctx, input.LeadId)
	if err != nil {
		return nil, err
	}

	jobNumber, invoiceNumber, err := sequence.DeriveJobNumbers(lead.LeadNumber)
	if err != nil {
		return nil, err
	}

	amount := input.Amount
	if input.QuoteId > 0 {
		quote, err := utils.FetchModel[Quote](ctx, input.QuoteId)
		if err != nil {
			return nil, errors.New("quote not found")
		}
		if quote.LeadId != lead.ID {
			return nil, errors.New("quote belongs to another lead")
		}
		if amount.IsZero() {
			amount = quote.Total
		}
	}
	if amount.IsNegative() {
		return nil, errors.New("amount cannot be negative")
	}

	job := Job{
		JobNumber:     jobNumber,
		LeadId:        lead.ID,
		QuoteId:       input.QuoteId,
		ScheduledDate: input.ScheduledDate,
		Status:        JobStatusScheduled,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&job).Error; err != nil {
		tx.Rollback()
		if errors.Is(wrapNumberInsertErr(err), sequence.ErrNumberTaken) {
			return nil, errors.New("lead already has a job")
		}
		return nil, err
	}
	invoice := Invoice{
		InvoiceNumber: invoiceNumber,
		JobId:         job.ID,
		Amount:        amount,
		AmountPaid:    decimal.Zero,
		Status:        InvoiceStatusUnpaid,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		tx.Rollback()
		if errors.Is(wrapNumberInsertErr(err), sequence.ErrNumberTaken) {
			return nil, errors.New("lead already has an invoice")
		}
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &job, nil
}

func UpdateJobStatus(ctx context.Context, id int, status JobStatus) (*Job, error) {

	if !status.Valid() {
		return nil, errors.New("invalid job status")
	}

	job, err := utils.FetchModel[Job](ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransitionTo(status) {
		return nil, errors.New("invalid status transition")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&job).Update("Status", status).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJobSchedule moves the scheduled date; JobNumber is immutable.
func UpdateJobSchedule(ctx context.Context, id int, scheduledDate *time.Time, notes string) (*Job, error) {

	job, err := utils.FetchModel[Job](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&job).Updates(map[string]interface{}{
		"ScheduledDate": scheduledDate,
		"Notes":         notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob removes the job and its invoice together; refuses once payments
// exist.
func DeleteJob(ctx context.Context, id int) (*Job, error) {

	result, err := utils.FetchModel[Job](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var invoice Invoice
	if err := db.WithContext(ctx).Where("job_id = ?", result.ID).First(&invoice).Error; err == nil {
		var count int64
		if err := db.WithContext(ctx).Model(&InvoicePayment{}).
			Where("invoice_id = ?", invoice.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("invoice has payments")
		}
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("job_id = ?", result.ID).Delete(&Invoice{}).Error; err != nil {
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

func GetJob(ctx context.Context, id int) (*Job, error) {
	return utils.FetchModel[Job](ctx, id, "Lead")
}

func GetJobs(ctx context.Context, status *JobStatus) ([]*Job, error) {

	db := config.GetDB()
	var results []*Job

	dbCtx := db.WithContext(ctx).Preload("Lead")
	if status != nil && *status != "" {
		if !status.Valid() {
			return nil, errors.New("invalid job status")
		}
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("scheduled_date").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
