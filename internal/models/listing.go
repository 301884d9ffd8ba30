package models

import "time"

type Listing struct {
	ListingID     string    `json:"id"`
	HostID        string    `json:"host_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Location      string    `json:"location"`
	Country       string    `json:"country"`
	ImageURL      string    `json:"image_url,omitempty"`
	PricePerNight int64     `json:"price_per_night"`
	CreatedAt     time.Time `json:"created_at"`
}

type ContactMessage struct {
	MessageID string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
