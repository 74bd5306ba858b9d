package models

import "fmt"

// User holds the canteen account populated by a successful login.
// SID and Balance are only meaningful while LoggedIn is true.
type User struct {
	Username      string
	Password      string
	CanteenNumber string
	SID           string
	S5URL         string
	FullName      string
	Email         string
	Balance       float64
	ID            int64
	Currency      string
	CanteenName   string
	LoggedIn      bool
}

func (u *User) String() string {
	return fmt.Sprintf(
		"User information:\n  - %s (%s)\n  - Email: %s\n  - Balance: %.2f %s\n  - Canteen: %s\n",
		u.FullName, u.Username, u.Email, u.Balance, u.Currency, u.CanteenName,
	)
}
