package strava

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"strava-canteen/models"
)

// Restriction markers used by the service in omezeniObj.den.
const (
	markerNoSchool   = "VP" // no school that day, meal is dropped entirely
	markerRestricted = "CO" // ordering deadline passed
	markerOptional   = "T"  // occasional item
)

// Menu holds the normalized day-grouped collections of one fetch.
// Every Fetch replaces all collections wholesale; nothing is patched in
// place, so after an order round-trip the collections always mirror the
// last confirmed remote state.
type Menu struct {
	client *Client

	// Orderable holds days of freely orderable meals, Restricted and
	// Optional the "CO" and "T" classes. MainOnly and SoupOnly filter
	// Orderable by meal type, Complete merges Orderable and Optional.
	// All are sorted ascending by date.
	Orderable  []models.Day
	Restricted []models.Day
	Optional   []models.Day
	MainOnly   []models.Day
	SoupOnly   []models.Day
	Complete   []models.Day
}

func newMenu(c *Client) *Menu {
	return &Menu{client: c}
}

// rawMeal is one meal record as the service sends it inside the
// table-keyed arrays of the objednavky response.
type rawMeal struct {
	Name               string      `json:"nazev"`
	TypeLabel          string      `json:"druh_popis"`
	LongDesc           string      `json:"delsiPopis"`
	Allergens          []string    `json:"alergeny"`
	ForbiddenAllergens []string    `json:"zakazaneAlergeny"`
	Restriction        rawRestrict `json:"omezeniObj"`
	Date               string      `json:"datum"` // dd-mm.yyyy
	Count              int         `json:"pocet"` // 1 = ordered
	Line               json.Number `json:"veta"`  // order-line id
	Price              json.Number `json:"cena"`
}

type rawRestrict struct {
	Den string `json:"den"`
}

// Fetch downloads the menu for the logged-in user and rebuilds every
// collection from scratch. Returns the menu itself for chaining.
func (m *Menu) Fetch() (*Menu, error) {
	if !m.client.User.LoggedIn {
		return nil, ErrNotLoggedIn
	}
	payload := map[string]any{
		"cislo":      m.client.User.CanteenNumber,
		"sid":        m.client.User.SID,
		"s5url":      m.client.User.S5URL,
		"lang":       "EN",
		"konto":      m.client.User.Balance,
		"podminka":   "",
		"ignoreCert": false,
	}
	status, body, err := m.client.apiRequest("objednavky", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{Endpoint: "objednavky", Status: status, Message: "failed to fetch menu"}
	}

	var tables map[string]json.RawMessage
	if err := json.Unmarshal(body, &tables); err != nil {
		return nil, &APIError{Endpoint: "objednavky", Err: fmt.Errorf("decode response: %w", err)}
	}
	raw := make(map[string][]rawMeal)
	for key, data := range tables {
		if !strings.HasPrefix(key, "table") {
			continue
		}
		var meals []rawMeal
		if err := json.Unmarshal(data, &meals); err != nil {
			return nil, &APIError{Endpoint: "objednavky", Err: fmt.Errorf("decode %s: %w", key, err)}
		}
		raw[key] = meals
	}
	if err := m.parse(raw); err != nil {
		return nil, err
	}
	return m, nil
}

// parse runs the normalization pipeline over the raw table arrays and
// swaps in the resulting collections.
func (m *Menu) parse(raw map[string][]rawMeal) error {
	orderable := make(map[string][]models.Meal)
	restricted := make(map[string][]models.Meal)
	optional := make(map[string][]models.Meal)

	// Walk the tables in a fixed order so meal order inside a day is
	// stable when one date spans several table arrays.
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, rm := range raw[key] {
			// Placeholder rows: no description and no allergen info, or a
			// name that just repeats the category label.
			if rm.LongDesc == "" && len(rm.Allergens) == 0 {
				continue
			}
			if rm.Name == rm.TypeLabel {
				continue
			}
			marker := rm.Restriction.Den
			if strings.Contains(marker, markerNoSchool) {
				continue
			}

			mealType := classifyType(rm.TypeLabel)
			if mealType == models.MealUnknown {
				continue
			}
			orderType := classifyOrder(marker)

			id, err := strconv.Atoi(rm.Line.String())
			if err != nil {
				return fmt.Errorf("parse order-line id %q: %w", rm.Line.String(), err)
			}
			price, err := strconv.ParseFloat(rm.Price.String(), 64)
			if err != nil {
				return fmt.Errorf("parse price %q: %w", rm.Price.String(), err)
			}

			date := reformatDate(rm.Date)
			meal := models.Meal{
				Date:               date,
				ID:                 id,
				Name:               rm.Name,
				Type:               mealType,
				OrderType:          orderType,
				Allergens:          rm.Allergens,
				ForbiddenAllergens: rm.ForbiddenAllergens,
				Price:              price,
				Ordered:            rm.Count == 1,
			}

			switch orderType {
			case models.OrderRestricted:
				restricted[date] = append(restricted[date], meal)
			case models.OrderOptional:
				optional[date] = append(optional[date], meal)
			case models.OrderNormal:
				orderable[date] = append(orderable[date], meal)
			}
		}
	}

	m.Orderable = buildDays(orderable)
	m.Restricted = buildDays(restricted)
	m.Optional = buildDays(optional)
	m.MainOnly = filterDaysByType(m.Orderable, models.MealMain)
	m.SoupOnly = filterDaysByType(m.Orderable, models.MealSoup)
	m.Complete = mergeDays(m.Orderable, m.Optional)
	return nil
}

// reformatDate rewrites the service's fixed-width dd-mm.yyyy date to
// ISO yyyy-mm-dd. Anything shorter is passed through untouched.
func reformatDate(raw string) string {
	if len(raw) < 10 {
		return raw
	}
	return raw[6:10] + "-" + raw[3:5] + "-" + raw[0:2]
}

// classifyType maps the Czech category label to a MealType.
func classifyType(label string) models.MealType {
	switch {
	case label == "Polévka":
		return models.MealSoup
	case strings.Contains(label, "Oběd"):
		return models.MealMain
	default:
		return models.MealUnknown
	}
}

// classifyOrder maps the restriction marker to an OrderType.
// "CO" takes precedence over "T".
func classifyOrder(marker string) models.OrderType {
	switch {
	case strings.Contains(marker, markerRestricted):
		return models.OrderRestricted
	case strings.Contains(marker, markerOptional):
		return models.OrderOptional
	default:
		return models.OrderNormal
	}
}

// buildDays converts a date-keyed bucket into Day records sorted by
// date, each day's Ordered flag being the OR over its meals.
func buildDays(byDate map[string][]models.Meal) []models.Day {
	days := make([]models.Day, 0, len(byDate))
	for date, meals := range byDate {
		days = append(days, models.Day{
			Date:    date,
			Ordered: anyOrdered(meals),
			Meals:   meals,
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func anyOrdered(meals []models.Meal) bool {
	for _, m := range meals {
		if m.Ordered {
			return true
		}
	}
	return false
}

// filterDaysByType keeps only meals of one type per day, dropping days
// left empty.
func filterDaysByType(days []models.Day, t models.MealType) []models.Day {
	var out []models.Day
	for _, day := range days {
		var meals []models.Meal
		for _, meal := range day.Meals {
			if meal.Type == t {
				meals = append(meals, meal)
			}
		}
		if len(meals) == 0 {
			continue
		}
		out = append(out, models.Day{
			Date:    day.Date,
			Ordered: anyOrdered(meals),
			Meals:   meals,
		})
	}
	return out
}

// mergeDays combines two day lists, concatenating meals and OR-ing the
// ordered flags for dates present in both. Result is sorted by date.
func mergeDays(a, b []models.Day) []models.Day {
	merged := make(map[string]models.Day)
	for _, day := range append(append([]models.Day{}, a...), b...) {
		cur, ok := merged[day.Date]
		if !ok {
			cur = models.Day{Date: day.Date}
		}
		cur.Meals = append(cur.Meals, day.Meals...)
		cur.Ordered = cur.Ordered || day.Ordered
		merged[day.Date] = cur
	}
	out := make([]models.Day, 0, len(merged))
	for _, day := range merged {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// String renders the orderable days in the format used by the demo.
func (m *Menu) String() string {
	if len(m.Orderable) == 0 {
		return "No menu data available"
	}
	var sb strings.Builder
	for _, day := range m.Orderable {
		status := "Not ordered"
		if day.Ordered {
			status = "Ordered"
		}
		fmt.Fprintf(&sb, "Date: %s - %s\n", day.Date, status)
		for _, meal := range day.Meals {
			fmt.Fprintf(&sb, "  - %s\n", meal)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
