package models

import (
	"log"

	"github.com/Vonnie2507/Probuild-ERP-Replit/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{},
		&Lead{},
		&Quote{}, &QuoteItem{},
		&Job{},
		&Invoice{}, &InvoicePayment{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
