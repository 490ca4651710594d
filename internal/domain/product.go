package domain

import "github.com/shopspring/decimal"

// Product Model
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	Name        string          `gorm:"size:256;not null" json:"name"`             // Display name
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`  // Price, two decimal places
	Description string          `gorm:"type:text" json:"description"`              // Free-form description
	SKU         string          `gorm:"column:sku;size:50;uniqueIndex" json:"sku"` // Stock-keeping unit
}

// PickupPoint Model
type PickupPoint struct {
	ID      uint   `gorm:"primaryKey" json:"id"`             // Primary key
	Address string `gorm:"size:400;not null" json:"address"` // Street address
}
