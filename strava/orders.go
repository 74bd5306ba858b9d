package strava

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"strava-canteen/models"
)

// OrderOptions tunes the bulk order/cancel transaction.
type OrderOptions struct {
	// ContinueOnError keeps staging the remaining ids after a staging
	// failure and returns everything joined at the end. Default is to
	// abort on the first error.
	ContinueOnError bool
	// StrictDuplicates rejects a request containing two meals that
	// share a date and meal type before anything is staged. When off,
	// duplicates only produce a log warning.
	StrictDuplicates bool
}

// OrderMeals orders the given meals in one transaction: stage every
// toggle, save, re-fetch and verify that each meal is now ordered.
func (m *Menu) OrderMeals(mealIDs ...int) error {
	return m.OrderMealsOpts(OrderOptions{}, mealIDs...)
}

// CancelMeals cancels the given meal orders in one transaction.
func (m *Menu) CancelMeals(mealIDs ...int) error {
	return m.CancelMealsOpts(OrderOptions{}, mealIDs...)
}

// OrderMealsOpts is OrderMeals with explicit options.
func (m *Menu) OrderMealsOpts(opts OrderOptions, mealIDs ...int) error {
	return m.setMeals(true, opts, mealIDs)
}

// CancelMealsOpts is CancelMeals with explicit options.
func (m *Menu) CancelMealsOpts(opts OrderOptions, mealIDs ...int) error {
	return m.setMeals(false, opts, mealIDs)
}

func (m *Menu) setMeals(ordered bool, opts OrderOptions, mealIDs []int) error {
	if !m.client.User.LoggedIn {
		return ErrNotLoggedIn
	}
	if ordered {
		if err := m.precheckOrder(opts, mealIDs); err != nil {
			return err
		}
	}

	var staged []error
	for _, id := range mealIDs {
		if err := m.changeMealOrder(id, ordered); err != nil {
			if !opts.ContinueOnError {
				return err
			}
			staged = append(staged, err)
		}
	}
	if err := m.saveOrder(); err != nil {
		return errors.Join(append(staged, err)...)
	}
	// Wholesale re-fetch: verification runs against the confirmed
	// remote state, not what we optimistically staged.
	if _, err := m.Fetch(); err != nil {
		return errors.Join(append(staged, err)...)
	}

	var failed []error
	for _, id := range mealIDs {
		if m.IsOrdered(id, true, true) != ordered {
			verb := "order"
			if !ordered {
				verb = "cancel"
			}
			err := &APIError{Endpoint: "saveOrders", Message: fmt.Sprintf("failed to %s meal with ID %d", verb, id)}
			if !opts.ContinueOnError {
				return err
			}
			failed = append(failed, err)
		}
	}
	return errors.Join(append(staged, failed...)...)
}

// precheckOrder runs the pre-staging checks for an order request:
// restricted meals, duplicate date+type pairs and the account balance.
func (m *Menu) precheckOrder(opts OrderOptions, mealIDs []int) error {
	type slot struct {
		date string
		t    models.MealType
	}
	seen := make(map[slot]int, len(mealIDs))
	var required float64

	for _, id := range mealIDs {
		meal, ok := m.ByID(id, true, true)
		if !ok {
			// Unknown here can still exist remotely; let verification
			// after the re-fetch be the judge.
			continue
		}
		if meal.OrderType == models.OrderRestricted {
			return &InvalidMealTypeError{ID: id, OrderType: meal.OrderType}
		}
		if !meal.Ordered {
			required += meal.Price
		}
		s := slot{date: meal.Date, t: meal.Type}
		if prev, dup := seen[s]; dup {
			if opts.StrictDuplicates {
				return &DuplicateMealError{Date: s.date, Type: s.t, IDs: []int{prev, id}}
			}
			log.Printf("strava: meals %d and %d share %s (%s)", prev, id, s.date, s.t)
			continue
		}
		seen[s] = id
	}

	if required > m.client.User.Balance {
		return &InsufficientBalanceError{Balance: m.client.User.Balance, Required: required}
	}
	return nil
}

// changeMealOrder stages one toggle remotely. A meal already in the
// wanted state is skipped. Nothing is durable until saveOrder.
func (m *Menu) changeMealOrder(mealID int, ordered bool) error {
	if !m.client.User.LoggedIn {
		return ErrNotLoggedIn
	}
	if m.IsOrdered(mealID, true, true) == ordered {
		return nil
	}
	count := "0"
	if ordered {
		count = "1"
	}
	payload := map[string]any{
		"cislo":      m.client.User.CanteenNumber,
		"sid":        m.client.User.SID,
		"url":        m.client.User.S5URL,
		"veta":       strconv.Itoa(mealID),
		"pocet":      count,
		"lang":       "EN",
		"ignoreCert": "false",
	}
	status, _, err := m.client.apiRequest("pridejJidloS5", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{
			Endpoint: "pridejJidloS5",
			Status:   status,
			Message:  fmt.Sprintf("failed to change order status of meal %d", mealID),
		}
	}
	return nil
}

// saveOrder commits all staged toggles.
func (m *Menu) saveOrder() error {
	if !m.client.User.LoggedIn {
		return ErrNotLoggedIn
	}
	payload := map[string]any{
		"cislo":      m.client.User.CanteenNumber,
		"sid":        m.client.User.SID,
		"url":        m.client.User.S5URL,
		"xml":        nil,
		"lang":       "EN",
		"ignoreCert": "false",
	}
	status, _, err := m.client.apiRequest("saveOrders", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Endpoint: "saveOrders", Status: status, Message: "failed to save order"}
	}
	return nil
}
