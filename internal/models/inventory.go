package models

import "time"

// InventoryItem is a stocked ingredient or product
type InventoryItem struct {
	ID                string    `json:"_id" gorm:"primaryKey"`
	RestaurantID      string    `json:"restaurantId" gorm:"column:restaurant_id;index;not null"`
	Name              string    `json:"name" gorm:"not null"`
	Quantity          float64   `json:"quantity"`
	Unit              string    `json:"unit"`
	LowStockThreshold float64   `json:"lowStockThreshold" gorm:"column:low_stock_threshold"`
	UpdatedBy         string    `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName specifies the table name for InventoryItem Model
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// LowStock reports whether the item is at or under its threshold.
func (i InventoryItem) LowStock() bool {
	return i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}
