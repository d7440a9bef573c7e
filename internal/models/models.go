package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	Name        string          `gorm:"not null"                    json:"name"`
	Description string          `gorm:"not null"                    json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Stock       uint            `gorm:"not null;default:0"          json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"not null"                 json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

// Order owns its items: deleting an order removes them, deleting a user
// removes their orders. Total is derived from the items and is rewritten by
// the repo after every item mutation, never adjusted incrementally.
type Order struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID    uint            `gorm:"index;not null"                  json:"user_id"`
	User      User            `gorm:"constraint:OnDelete:CASCADE"     json:"-"`
	Address   string          `json:"address,omitempty"`
	Total     decimal.Decimal `gorm:"type:numeric(10,2);not null"     json:"total"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []OrderItem     `gorm:"constraint:OnDelete:CASCADE"     json:"items,omitempty"`
}

// OrderItem keeps the unit price captured at checkout time. Later catalog
// price changes never touch it.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"            json:"id"`
	OrderID   uint            `gorm:"index;not null"                      json:"order_id"`
	ProductID uint            `gorm:"not null"                            json:"product_id"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null"         json:"price"`
	Quantity  uint            `gorm:"not null;default:1;check:quantity>0" json:"quantity"`
}

const (
	ActionView = "view"
	ActionBuy  = "buy"
)

// UserLog is an append-only audit trail. Nothing in the order path depends on
// it; a failed write is logged and dropped.
type UserLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID      uint      `gorm:"index;not null"              json:"user_id"`
	User        User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Action      string    `gorm:"not null"                    json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
