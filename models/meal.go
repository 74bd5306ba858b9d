package models

import "fmt"

// MealType is the meal category as shown on the canteen menu.
type MealType string

const (
	MealSoup    MealType = "soup"
	MealMain    MealType = "main"
	MealUnknown MealType = "unknown"
)

// OrderType says whether a meal can currently be ordered.
type OrderType string

const (
	// OrderNormal: freely orderable (empty restriction marker).
	OrderNormal OrderType = "normal"
	// OrderRestricted: ordering deadline passed ("CO" marker).
	OrderRestricted OrderType = "restricted"
	// OrderOptional: occasional item, not ordered by default ("T" marker).
	OrderOptional OrderType = "optional"
)

// Meal is one order line on the menu.
type Meal struct {
	ID                 int // order-line id (veta), used to toggle the order remotely
	Name               string
	Type               MealType
	OrderType          OrderType
	Allergens          []string
	ForbiddenAllergens []string
	Price              float64
	Ordered            bool
	Date               string // yyyy-mm-dd, owning day
}

func (m Meal) String() string {
	status := "not ordered"
	if m.Ordered {
		status = "ordered"
	}
	return fmt.Sprintf("%d %s (%s) [%s]", m.ID, m.Name, m.Type, status)
}

// Day groups the meals of one calendar date.
// Ordered is true if any meal of the day is ordered.
type Day struct {
	Date    string // yyyy-mm-dd
	Ordered bool
	Meals   []Meal
}
