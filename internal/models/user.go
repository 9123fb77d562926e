package models

import "time"

// Role gates which staff may call which producer endpoints.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleKitchen Role = "kitchen"
	RoleWaiter  Role = "waiter"
)

// User represents a staff member of one restaurant
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"unique;not null"`
	Password     string    `json:"-" gorm:"not null"`
	RestaurantID string    `json:"restaurantId" gorm:"column:restaurant_id;index;not null"`
	Role         Role      `json:"role" gorm:"not null;default:'waiter'"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
