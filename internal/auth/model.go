package auth

import "time"

type User struct {
	Email string `json:"email"`
}

type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	TokenHash string    `json:"tokenHash"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
	ExpiresAt time.Time `json:"expiresAt"`
}
