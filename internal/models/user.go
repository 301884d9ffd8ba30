package models

import "time"

type User struct {
	UserID       string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Created      time.Time `json:"created_at"`
}

const (
	RoleGuest = "guest"
	RoleHost  = "host"
)
