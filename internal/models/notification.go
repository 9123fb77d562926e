package models

import "time"

type NotificationType string

const (
	NotificationOrder     NotificationType = "order"
	NotificationKitchen   NotificationType = "kitchen"
	NotificationInventory NotificationType = "inventory"
	NotificationSystem    NotificationType = "system"
)

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; higher is more important.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Notification is the server-side record seeding a dashboard's notification list
type Notification struct {
	ID           string           `json:"_id" gorm:"primaryKey"`
	RestaurantID string           `json:"restaurantId" gorm:"column:restaurant_id;index;not null"`
	Type         NotificationType `json:"type" gorm:"not null"`
	Title        string           `json:"title" gorm:"not null"`
	Message      string           `json:"message"`
	Priority     Priority         `json:"priority" gorm:"not null;default:'medium'"`
	Read         bool             `json:"read" gorm:"not null;default:false"`
	Data         map[string]any   `json:"data,omitempty" gorm:"serializer:json"`
	CreatedAt    time.Time        `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for Notification Model
func (Notification) TableName() string {
	return "notifications"
}

// All lists every model for migrations.
func All() []any {
	return []any{&User{}, &Order{}, &InventoryItem{}, &Notification{}}
}
