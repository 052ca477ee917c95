package models

import (
	"context"
	"errors"
	"time"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
	"github.com/Vonnie2507/Probuild-ERP-Replit/utils"
)

type Customer struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name" binding:"required"`
	Email       string    `gorm:"size:100" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Mobile      string    `gorm:"size:20" json:"mobile"`
	Address     string    `gorm:"size:255" json:"address"`
	Suburb      string    `gorm:"size:100" json:"suburb"`
	State       string    `gorm:"size:50" json:"state"`
	Postcode    string    `gorm:"size:10" json:"postcode"`
	Notes       string    `gorm:"type:text" json:"notes"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Mobile   string `json:"mobile"`
	Address  string `json:"address"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Notes    string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewCustomer) validate(ctx context.Context, id int) error {
	// name
	if err := utils.ValidateUnique[Customer](ctx, "name", input.Name, id); err != nil {
		return err
	}
	// email
	if len(input.Email) > 0 && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	// phone
	if len(input.Phone) > 0 {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if len(input.Mobile) > 0 {
		if err := utils.ValidatePhoneNumber(input.Mobile, utils.CountryCode); err != nil {
			return errors.New("invalid mobile number")
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Mobile:   input.Mobile,
		Address:  input.Address,
		Suburb:   input.Suburb,
		State:    input.State,
		Postcode: input.Postcode,
		Notes:    input.Notes,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Email":    input.Email,
		"Phone":    input.Phone,
		"Mobile":   input.Mobile,
		"Address":  input.Address,
		"Suburb":   input.Suburb,
		"State":    input.State,
		"Postcode": input.Postcode,
		"Notes":    input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {

	result, err := utils.FetchModel[Customer](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// Do not delete if any Lead references this customer
	var count int64
	if err = db.WithContext(ctx).Model(&Lead{}).
		Where("customer_id = ?", result.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by lead")
	}

	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return utils.FetchModel[Customer](ctx, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {

	db := config.GetDB()
	var results []*Customer

	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		// typeahead search, keep the result set small
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%").Limit(config.SearchLimit)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
