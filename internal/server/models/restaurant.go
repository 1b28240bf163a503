package models

import "time"

// Restaurant is the tenant owned by a set-up account.
type Restaurant struct {
	ID            string    `json:"id"`
	Name          string    `json:"restaurantName"`
	ContactNumber string    `json:"restaurantContactNumber"`
	Address       string    `json:"address"`
	Email         *string   `json:"restaurantEmail,omitempty"`
	LogoURL       string    `json:"logoUrl"`
	MinOrderTime  int       `json:"minOrderTime"`
	MaxOrderTime  int       `json:"maxOrderTime"`
	StaffCount    int       `json:"staffCount"`
	Cuisine       string    `json:"cuisine"`
	GPSAddress    string    `json:"gpsAddress"`
	Active        bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
