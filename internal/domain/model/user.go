package model

import "time"

// User carries the minimal account fields the reconciliation core reads
// (notification addressing). Account management itself lives elsewhere.
type User struct {
	ID        string // UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}
