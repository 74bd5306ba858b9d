package strava

import (
	"sort"

	"strava-canteen/models"
)

// searchLists returns the collections a query walks, always starting
// with Orderable, then Restricted and Optional when included. Every
// query uses this fixed order.
func (m *Menu) searchLists(includeRestricted, includeOptional bool) [][]models.Day {
	lists := [][]models.Day{m.Orderable}
	if includeRestricted {
		lists = append(lists, m.Restricted)
	}
	if includeOptional {
		lists = append(lists, m.Optional)
	}
	return lists
}

// ByDate returns the first day matching the yyyy-mm-dd date across the
// selected collections.
func (m *Menu) ByDate(date string, includeRestricted, includeOptional bool) (models.Day, bool) {
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			if day.Date == date {
				return day, true
			}
		}
	}
	return models.Day{}, false
}

// ByID returns the meal with the given order-line id.
func (m *Menu) ByID(mealID int, includeRestricted, includeOptional bool) (models.Meal, bool) {
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			for _, meal := range day.Meals {
				if meal.ID == mealID {
					return meal, true
				}
			}
		}
	}
	return models.Meal{}, false
}

// IsOrdered reports whether the meal is currently ordered. Unknown ids
// count as not ordered.
func (m *Menu) IsOrdered(mealID int, includeRestricted, includeOptional bool) bool {
	meal, ok := m.ByID(mealID, includeRestricted, includeOptional)
	return ok && meal.Ordered
}

// Meals flattens the selected collections into one meal list, keeping
// day order.
func (m *Menu) Meals(includeRestricted, includeOptional bool) []models.Meal {
	var out []models.Meal
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			out = append(out, day.Meals...)
		}
	}
	return out
}

// MainMeals is Meals restricted to main courses.
func (m *Menu) MainMeals(includeRestricted, includeOptional bool) []models.Meal {
	return m.mealsOfType(models.MealMain, includeRestricted, includeOptional)
}

// SoupMeals is Meals restricted to soups.
func (m *Menu) SoupMeals(includeRestricted, includeOptional bool) []models.Meal {
	return m.mealsOfType(models.MealSoup, includeRestricted, includeOptional)
}

func (m *Menu) mealsOfType(t models.MealType, includeRestricted, includeOptional bool) []models.Meal {
	var out []models.Meal
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			for _, meal := range day.Meals {
				if meal.Type == t {
					out = append(out, meal)
				}
			}
		}
	}
	return out
}

// MealsByType is mealsOfType with the result sorted by date.
func (m *Menu) MealsByType(t models.MealType, includeRestricted, includeOptional bool) []models.Meal {
	out := m.mealsOfType(t, includeRestricted, includeOptional)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// OrderedMeals returns every ordered meal across the selected
// collections, sorted by date.
func (m *Menu) OrderedMeals(includeRestricted, includeOptional bool) []models.Meal {
	var out []models.Meal
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			for _, meal := range day.Meals {
				if meal.Ordered {
					out = append(out, meal)
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// UnorderedDays returns days with nothing ordered, sorted by date.
func (m *Menu) UnorderedDays(includeRestricted, includeOptional bool) []models.Day {
	var out []models.Day
	for _, days := range m.searchLists(includeRestricted, includeOptional) {
		for _, day := range days {
			if !day.Ordered {
				out = append(out, day)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DayFilter selects days and meals for Menu.Days. Zero values mean
// "orderable days, both meal types, ordered or not".
type DayFilter struct {
	Types      []models.MealType  // meal types to keep; empty = all
	OrderTypes []models.OrderType // collections to search; empty = OrderNormal only
	Ordered    *bool              // filter days on their aggregated ordered flag
}

// Days is the generalized day query: it walks the requested collections
// in the fixed Orderable, Restricted, Optional order, keeps only meals
// of the requested types, drops days left empty and finally filters on
// the day ordered flag. The result is sorted by date.
func (m *Menu) Days(f DayFilter) []models.Day {
	orderTypes := f.OrderTypes
	if len(orderTypes) == 0 {
		orderTypes = []models.OrderType{models.OrderNormal}
	}
	// Orderable is always searched, like every other query here.
	want := make(map[models.OrderType]bool, len(orderTypes))
	for _, ot := range orderTypes {
		want[ot] = true
	}

	var out []models.Day
	for _, days := range m.searchLists(want[models.OrderRestricted], want[models.OrderOptional]) {
		for _, day := range days {
			meals := day.Meals
			if len(f.Types) > 0 {
				meals = nil
				for _, meal := range day.Meals {
					for _, t := range f.Types {
						if meal.Type == t {
							meals = append(meals, meal)
							break
						}
					}
				}
				if len(meals) == 0 {
					continue
				}
			}
			day = models.Day{Date: day.Date, Ordered: anyOrdered(meals), Meals: meals}
			if f.Ordered != nil && day.Ordered != *f.Ordered {
				continue
			}
			out = append(out, day)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
