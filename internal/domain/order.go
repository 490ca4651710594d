package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"       // Placed, waiting at the pickup point
	OrderStatusDelivered OrderStatus = "delivered" // Handed over to the customer
)

const (
	// ReceiveCodeLength is the number of characters in a receive code
	ReceiveCodeLength = 6
	// ReceiveCodeAlphabet holds the characters a receive code is drawn from
	ReceiveCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Order Model
type Order struct {
	ID            uint         `gorm:"primaryKey" json:"id"`                                                  // Primary key
	UserID        uint         `gorm:"not null;index" json:"user_id"`                                         // Owning user
	Products      []Product    `gorm:"many2many:order_products;constraint:OnDelete:CASCADE;" json:"products"` // Ordered products
	CreatedAt     time.Time    `gorm:"autoCreateTime;<-:create" json:"created_at"`                            // Set once on insert
	DeliveryDate  *time.Time   `json:"delivery_date"`                                                         // Not set by any flow yet
	ReceiveCode   string       `gorm:"size:20;not null;<-:create" json:"receive_code"`                        // Code shown at pickup
	PickupPointID *uint        `gorm:"index" json:"pickup_point_id"`                                          // Nullable pickup point reference
	PickupPoint   *PickupPoint `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"pickup_point"`    // Pickup location
	Status        OrderStatus  `gorm:"size:20;not null;default:new" json:"status"`                            // Fulfilment status
}

// BeforeCreate fills the generated fields of a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ReceiveCode == "" {
		code, err := NewReceiveCode()
		if err != nil {
			return err
		}
		o.ReceiveCode = code
	}
	if o.Status == "" {
		o.Status = OrderStatusNew
	}
	return nil
}

// SKUs returns the comma separated SKUs of the loaded products
func (o *Order) SKUs() string {
	skus := make([]string, 0, len(o.Products))
	for _, p := range o.Products {
		skus = append(skus, p.SKU)
	}
	return strings.Join(skus, ", ")
}

// NewReceiveCode draws ReceiveCodeLength characters uniformly from ReceiveCodeAlphabet.
// Codes are not checked against existing orders.
func NewReceiveCode() (string, error) {
	limit := big.NewInt(int64(len(ReceiveCodeAlphabet)))
	b := make([]byte, ReceiveCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = ReceiveCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
