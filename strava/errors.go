package strava

import (
	"errors"
	"fmt"

	"strava-canteen/models"
)

var (
	// ErrEmptyCredentials is returned by Login before any network call
	// when the username or password is empty.
	ErrEmptyCredentials = errors.New("username and password are required")
	// ErrNotLoggedIn is returned by operations that need a session.
	ErrNotLoggedIn = errors.New("user not logged in")
	// ErrAlreadyLoggedIn is returned by Login on a live session.
	ErrAlreadyLoggedIn = errors.New("user already logged in")
)

// APIError covers remote-call failures: transport errors, non-200
// statuses and post-order verification mismatches.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("strava: %s: %v", e.Endpoint, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("strava: %s: %s (status %d)", e.Endpoint, e.Message, e.Status)
	default:
		return fmt.Sprintf("strava: %s", e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// AuthError is a rejected login. Message comes from the remote response.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("strava: login failed: %s", e.Message)
}

// DuplicateMealError reports two requested meals sharing a date and meal
// type, detected before staging when StrictDuplicates is on.
type DuplicateMealError struct {
	Date string
	Type models.MealType
	IDs  []int
}

func (e *DuplicateMealError) Error() string {
	return fmt.Sprintf("strava: duplicate meals %v on %s (%s)", e.IDs, e.Date, e.Type)
}

// InvalidMealTypeError reports an attempt to order a meal that cannot be
// ordered, e.g. one whose ordering deadline already passed.
type InvalidMealTypeError struct {
	ID        int
	OrderType models.OrderType
}

func (e *InvalidMealTypeError) Error() string {
	return fmt.Sprintf("strava: meal %d cannot be ordered (order type %s)", e.ID, e.OrderType)
}

// InsufficientBalanceError reports that the account balance does not
// cover the meals being ordered.
type InsufficientBalanceError struct {
	Balance  float64
	Required float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("strava: insufficient balance: have %.2f, need %.2f", e.Balance, e.Required)
}
