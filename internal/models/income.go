package models

import "time"

// Income mirrors Expense with a source label instead of a category.
type Income struct {
	ID          int       `json:"id" db:"id"`
	OwnerID     int       `json:"owner_id" db:"owner_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	Source      string    `json:"source" db:"source"`
	Date        Date      `json:"date" db:"income_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Source is a suggested income label shown to all users.
type Source struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
