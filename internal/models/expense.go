package models

import "time"

// Expense is a single spending record owned by exactly one user.
// Category is a free-text label; it is not constrained by the Category
// suggestion list.
type Expense struct {
	ID          int       `json:"id" db:"id"`
	OwnerID     int       `json:"owner_id" db:"owner_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Date        Date      `json:"date" db:"expense_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Category is a suggested expense label shown to all users. Records may use
// any string; rows here carry no referential weight.
type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
