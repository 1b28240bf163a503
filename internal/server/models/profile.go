package models

import "time"

// Profile holds display attributes of an account, keyed by the same email.
type Profile struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	Email          string     `json:"email"`
	ContactNumber  string     `json:"contactNumber"`
	RestaurantName string     `json:"restaurantName"`
	Verified       bool       `json:"isVerified"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	Active         int        `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
