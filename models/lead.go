package models

import (
	"context"
	"errors"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/Vonnie2507/Probuild-ERP-Replit/sequence"
	"github.com/Vonnie2507/Probuild-ERP-Replit/utils"
)

// Lead is the root of a numbering family: every quote, job and invoice number
// hangs off its LeadNumber. The number is assigned once at creation and never
// rewritten; deleting a lead leaves a permanent gap in the sequence.
type Lead struct {
	ID          int       `gorm:"primary_key" json:"id"`
	LeadNumber  string    `gorm:"size:20;not null;uniqueIndex" json:"lead_number"`
	CustomerId  int       `gorm:"index;not null" json:"customer_id" binding:"required"`
	Customer    *Customer `json:"customer,omitempty"`
	Source      string    `gorm:"size:100" json:"source"`
	FenceType   string    `gorm:"size:100" json:"fence_type"`
	SiteAddress string    `gorm:"size:255" json:"site_address"`
	Stage       LeadStage `gorm:"type:enum('New','Contacted','Quoted','Approved','Declined');not null;default:'New'" json:"stage"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLead struct {
	CustomerId  int    `json:"customer_id" binding:"required"`
	Source      string `json:"source"`
	FenceType   string `json:"fence_type"`
	SiteAddress string `json:"site_address"`
	Notes       string `json:"notes"`
}

func (input *NewLead) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	return nil
}

// CreateLead allocates the next lead number and persists the lead in one
// cycle. The redis lock narrows the race window across instances; the unique
// index on lead_number plus the allocator's bounded retry closes it.
func CreateLead(ctx context.Context, input *NewLead) (*Lead, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	release, _ := utils.SequenceLock(ctx, "lead")
	defer release()

	db := config.GetDB()
	var lead Lead

	_, err := sequence.Allocate(ctx,
		func(ctx context.Context) (string, error) {
			return sequence.NextLeadNumber(ctx, NewNumberStore(db))
		},
		func(number string) error {
			lead = Lead{
				LeadNumber:  number,
				CustomerId:  input.CustomerId,
				Source:      input.Source,
				FenceType:   input.FenceType,
				SiteAddress: input.SiteAddress,
				Stage:       LeadStageNew,
				Notes:       input.Notes,
			}
			return wrapNumberInsertErr(db.WithContext(ctx).Create(&lead).Error)
		},
	)
	if err != nil {
		config.LogError(config.GetLogger(), "lead.go", "CreateLead", "Allocate", input, err)
		return nil, err
	}
	return &lead, nil
}

// UpdateLead never touches LeadNumber or Stage; stage moves go through
// UpdateLeadStage.
func UpdateLead(ctx context.Context, id int, input *NewLead) (*Lead, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	lead, err := utils.FetchModel[Lead](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&lead).Updates(map[string]interface{}{
		"CustomerId":  input.CustomerId,
		"Source":      input.Source,
		"FenceType":   input.FenceType,
		"SiteAddress": input.SiteAddress,
		"Notes":       input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return lead, nil
}

func UpdateLeadStage(ctx context.Context, id int, stage LeadStage) (*Lead, error) {

	if !stage.Valid() {
		return nil, errors.New("invalid lead stage")
	}

	lead, err := utils.FetchModel[Lead](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&lead).Update("Stage", stage).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

// DeleteLead refuses while quotes or a job still reference the lead. The
// freed number is never reissued.
func DeleteLead(ctx context.Context, id int) (*Lead, error) {

	result, err := utils.FetchModel[Lead](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err = db.WithContext(ctx).Model(&Quote{}).
		Where("lead_id = ?", result.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by quote")
	}
	if err = db.WithContext(ctx).Model(&Job{}).
		Where("lead_id = ?", result.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by job")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetLead(ctx context.Context, id int) (*Lead, error) {
	return utils.FetchModel[Lead](ctx, id, "Customer")
}

func GetLeads(ctx context.Context, stage *LeadStage) ([]*Lead, error) {

	db := config.GetDB()
	var results []*Lead

	dbCtx := db.WithContext(ctx).Preload("Customer")
	if stage != nil && *stage != "" {
		if !stage.Valid() {
			return nil, errors.New("invalid lead stage")
		}
		dbCtx = dbCtx.Where("stage = ?", *stage)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
