package model

import "time"

// MealType is one of the three daily services
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// Meal is the menu of one service
type Meal struct {
	Type  MealType
	Items []string
}

func (x *Meal) available() bool {
	return x != nil && len(x.Items) > 0
}

// Restaurant holds today's meals of one cafeteria
type Restaurant struct {
	Name      string
	Breakfast *Meal
	Lunch     *Meal
	Dinner    *Meal
	// Selected is the meal to display, chosen by SelectMeal
	Selected *Meal
}

// SelectMeal picks the most relevant meal for the time of day: breakfast
// before 10:00, lunch until 15:00, dinner afterwards, each falling back to
// the adjacent service and finally to anything served today.
func (x *Restaurant) SelectMeal(now time.Time) *Meal {
	var preferred []*Meal
	switch hour := now.Hour(); {
	case hour < 10:
		preferred = []*Meal{x.Breakfast, x.Lunch}
	case hour < 15:
		preferred = []*Meal{x.Lunch, x.Dinner}
	default:
		preferred = []*Meal{x.Dinner, x.Lunch}
	}
	preferred = append(preferred, x.Lunch, x.Dinner, x.Breakfast)

	for _, m := range preferred {
		if m.available() {
			return m
		}
	}
	return nil
}

// Menu is today's menu across the target restaurants. A Menu handed out by
// the cache is shared and must be treated as read-only.
type Menu struct {
	Date        string // YYYY-MM-DD
	Restaurants []Restaurant
	FetchedAt   time.Time
}

// IsEmpty reports whether the menu has nothing to show
func (x *Menu) IsEmpty() bool {
	return x == nil || len(x.Restaurants) == 0
}
