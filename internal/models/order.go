package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus is the front-of-house lifecycle of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// KitchenStatus is the kitchen-side progress of an order
type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "pending"
	KitchenPreparing KitchenStatus = "preparing"
	KitchenReady     KitchenStatus = "ready"
)

// OrderItem is one line of an order
type OrderItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name" binding:"required"`
	Quantity   int     `json:"quantity" binding:"required,gt=0"`
	Price      float64 `json:"price" binding:"gte=0"`
	Notes      string  `json:"notes,omitempty"`
}

// Order represents a customer order
type Order struct {
	ID            string         `json:"_id" gorm:"primaryKey"`
	RestaurantID  string         `json:"restaurantId" gorm:"column:restaurant_id;index;not null"`
	OrderNumber   string         `json:"orderNumber" gorm:"column:order_number;not null"`
	TableNumber   *int           `json:"tableNumber,omitempty" gorm:"column:table_number"`
	Items         []OrderItem    `json:"items" gorm:"serializer:json"`
	Total         float64        `json:"total"`
	Status        OrderStatus    `json:"status" gorm:"not null;default:'pending'"`
	KitchenStatus KitchenStatus  `json:"kitchenStatus" gorm:"column:kitchen_status;not null;default:'pending'"`
	CreatedBy     string         `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy     string         `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Order Model
func (Order) TableName() string {
	return "orders"
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderServed, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// ValidKitchenStatus reports whether s is a known kitchen status.
func ValidKitchenStatus(s KitchenStatus) bool {
	switch s {
	case KitchenPending, KitchenPreparing, KitchenReady:
		return true
	}
	return false
}
