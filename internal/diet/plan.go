package diet

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stored schema tags for PlanData.
const (
	SchemaLegacy = 1
	SchemaWeekly = 2
)

// DayKeys lists the weekly plan keys in calendar order.
var DayKeys = []string{"day_1", "day_2", "day_3", "day_4", "day_5", "day_6", "day_7"}

// MealSlot names a meal section and its display label.
type MealSlot struct {
	Key   string
	Label string
}

// MealSlots lists the meals of a weekly day in serving order.
var MealSlots = []MealSlot{
	{Key: "breakfast", Label: "Breakfast"},
	{Key: "mid_morning", Label: "Mid Morning"},
	{Key: "lunch", Label: "Lunch"},
	{Key: "evening_snack", Label: "Evening Snack"},
	{Key: "dinner", Label: "Dinner"},
}

// LegacyMealSlots lists the meals of the older daily_meals shape.
var LegacyMealSlots = []MealSlot{
	{Key: "early_morning", Label: "Early Morning"},
	{Key: "breakfast", Label: "Breakfast"},
	{Key: "lunch", Label: "Lunch"},
	{Key: "snacks", Label: "Snacks"},
	{Key: "dinner", Label: "Dinner"},
}

// Day holds the meals of one weekly day.
type Day struct {
	Breakfast    []string `json:"breakfast"`
	MidMorning   []string `json:"mid_morning"`
	Lunch        []string `json:"lunch"`
	EveningSnack []string `json:"evening_snack"`
	Dinner       []string `json:"dinner"`
}

// Meal returns the items of the slot with the given key.
func (d Day) Meal(key string) []string {
	switch key {
	case "breakfast":
		return d.Breakfast
	case "mid_morning":
		return d.MidMorning
	case "lunch":
		return d.Lunch
	case "evening_snack":
		return d.EveningSnack
	case "dinner":
		return d.Dinner
	}
	return nil
}

func (d *Day) setMeal(key string, items []string) {
	switch key {
	case "breakfast":
		d.Breakfast = items
	case "mid_morning":
		d.MidMorning = items
	case "lunch":
		d.Lunch = items
	case "evening_snack":
		d.EveningSnack = items
	case "dinner":
		d.Dinner = items
	}
}

// GeneratedPlan is a validated weekly plan.
type GeneratedPlan struct {
	PlanType        string         `json:"plan_type"`
	CaloriesPerDay  float64        `json:"calories_per_day"`
	VegOrNonVeg     string         `json:"veg_or_nonveg"`
	IndianFoodsOnly bool           `json:"indian_foods_only"`
	WeeklyPlan      map[string]Day `json:"weekly_plan"`
	Precautions     []string       `json:"precautions"`
	Disclaimer      string         `json:"disclaimer"`
}

// DailyMeals is the single day of a legacy plan.
type DailyMeals struct {
	EarlyMorning []string `json:"early_morning"`
	Breakfast    []string `json:"breakfast"`
	Lunch        []string `json:"lunch"`
	Snacks       []string `json:"snacks"`
	Dinner       []string `json:"dinner"`
}

// Meal returns the items of the legacy slot with the given key.
func (d DailyMeals) Meal(key string) []string {
	switch key {
	case "early_morning":
		return d.EarlyMorning
	case "breakfast":
		return d.Breakfast
	case "lunch":
		return d.Lunch
	case "snacks":
		return d.Snacks
	case "dinner":
		return d.Dinner
	}
	return nil
}

// LegacyPlan is the pre-weekly plan shape. It is read, never generated.
type LegacyPlan struct {
	DailyMeals      DailyMeals `json:"daily_meals"`
	CaloriesPerDay  float64    `json:"calories_per_day"`
	IndianFoodsOnly bool       `json:"indian_foods_only"`
	VegOrNonVeg     string     `json:"veg_or_nonveg"`
	Precautions     []string   `json:"precautions"`
	Disclaimer      string     `json:"disclaimer"`
}

// PlanData holds exactly one of a weekly or a legacy plan.
type PlanData struct {
	Weekly *GeneratedPlan
	Legacy *LegacyPlan
}

// WeeklyData wraps a generated plan.
func WeeklyData(p GeneratedPlan) PlanData {
	return PlanData{Weekly: &p}
}

// SchemaVersion is the planVersion tag stored with the data.
func (d PlanData) SchemaVersion() int {
	if d.Weekly != nil {
		return SchemaWeekly
	}
	return SchemaLegacy
}

// CaloriesPerDay reports the daily calories of either variant.
func (d PlanData) CaloriesPerDay() float64 {
	if d.Weekly != nil {
		return d.Weekly.CaloriesPerDay
	}
	if d.Legacy != nil {
		return d.Legacy.CaloriesPerDay
	}
	return 0
}

// VegOrNonVeg reports the diet type of either variant.
func (d PlanData) VegOrNonVeg() string {
	if d.Weekly != nil {
		return d.Weekly.VegOrNonVeg
	}
	if d.Legacy != nil {
		return d.Legacy.VegOrNonVeg
	}
	return ""
}

// Precautions reports the precautions of either variant.
func (d PlanData) Precautions() []string {
	if d.Weekly != nil {
		return d.Weekly.Precautions
	}
	if d.Legacy != nil {
		return d.Legacy.Precautions
	}
	return nil
}

// Disclaimer reports the disclaimer of either variant.
func (d PlanData) Disclaimer() string {
	if d.Weekly != nil {
		return d.Weekly.Disclaimer
	}
	if d.Legacy != nil {
		return d.Legacy.Disclaimer
	}
	return ""
}

func (d PlanData) MarshalJSON() ([]byte, error) {
	switch {
	case d.Weekly != nil:
		return json.Marshal(d.Weekly)
	case d.Legacy != nil:
		return json.Marshal(d.Legacy)
	}
	return []byte("null"), nil
}

// DecodePlanData reads stored plan JSON according to its schema tag.
func DecodePlanData(schemaVersion int, raw []byte) (PlanData, error) {
	switch schemaVersion {
	case SchemaWeekly:
		var p GeneratedPlan
		if err := json.Unmarshal(raw, &p); err != nil {
			return PlanData{}, fmt.Errorf("failed to decode weekly plan: %w", err)
		}
		return PlanData{Weekly: &p}, nil
	case SchemaLegacy:
		var p LegacyPlan
		if err := json.Unmarshal(raw, &p); err != nil {
			return PlanData{}, fmt.Errorf("failed to decode legacy plan: %w", err)
		}
		return PlanData{Legacy: &p}, nil
	}
	return PlanData{}, fmt.Errorf("unknown plan schema version %d", schemaVersion)
}

// PersistedDietPlan is one stored version of a user's plan.
type PersistedDietPlan struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user"`
	PlanData       PlanData        `json:"planData"`
	PlanVersion    int             `json:"planVersion"`
	UserInput      json.RawMessage `json:"userInput"`
	Version        int             `json:"version"`
	IsActive       bool            `json:"isActive"`
	LastAccessedAt time.Time       `json:"lastAccessedAt"`
	CreatedBy      string          `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Summary is a history row without the plan body.
type Summary struct {
	ID             string    `json:"id"`
	Version        int       `json:"version"`
	PlanVersion    int       `json:"planVersion"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}
