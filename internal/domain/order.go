package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

type Address struct {
	ID        ID     `json:"id,omitempty"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

type Order struct {
	ID            ID              `json:"id"`
	UserID        ID              `json:"userId"`
	Items         []CartLineItem  `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Address       *Address        `json:"address,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Status        OrderStatus     `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	Date          time.Time       `json:"date"`
}
