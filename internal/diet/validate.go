package diet

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"medidiet/internal/apperr"
)

type violations []string

func (v *violations) add(path, format string, args ...any) {
	*v = append(*v, path+": "+fmt.Sprintf(format, args...))
}

// ValidatePlan checks a parsed value against the weekly plan shape and
// returns the typed plan. Every violation is reported in one SchemaViolation
// error. Values are never coerced and missing content is never filled in.
func ValidatePlan(v any) (GeneratedPlan, error) {
	root, ok := v.(map[string]any)
	if !ok {
		return GeneratedPlan{}, apperr.New(apperr.KindSchemaViolation, "AI response is not a JSON object")
	}
	if refusal, ok := root["error"]; ok {
		return GeneratedPlan{}, apperr.New(apperr.KindSchemaViolation,
			fmt.Sprintf("AI declined to produce a plan: %v", refusal))
	}

	var errs violations
	var plan GeneratedPlan

	if s, ok := root["plan_type"].(string); !ok || s != "weekly" {
		errs.add("plan_type", "must be \"weekly\"")
	} else {
		plan.PlanType = s
	}

	plan.CaloriesPerDay = positiveNumber(root, "calories_per_day", &errs)
	plan.VegOrNonVeg = nonBlankString(root, "veg_or_nonveg", &errs)
	plan.Disclaimer = nonBlankString(root, "disclaimer", &errs)

	switch b := root["indian_foods_only"].(type) {
	case bool:
		plan.IndianFoodsOnly = b
	case nil:
		errs.add("indian_foods_only", "is required")
	default:
		errs.add("indian_foods_only", "must be a boolean")
	}

	plan.Precautions = itemList(root["precautions"], "precautions", &errs)
	plan.WeeklyPlan = weeklyPlan(root["weekly_plan"], &errs)

	if len(errs) > 0 {
		return GeneratedPlan{}, apperr.New(apperr.KindSchemaViolation,
			"AI response failed schema validation: "+strings.Join(errs, "; "))
	}
	return plan, nil
}

func weeklyPlan(v any, errs *violations) map[string]Day {
	if v == nil {
		errs.add("weekly_plan", "is required")
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		errs.add("weekly_plan", "must be an object")
		return nil
	}

	known := make(map[string]bool, len(DayKeys))
	days := make(map[string]Day, len(DayKeys))
	for _, key := range DayKeys {
		known[key] = true
		path := "weekly_plan." + key
		raw, present := obj[key]
		if !present {
			errs.add(path, "is required")
			continue
		}
		dayObj, ok := raw.(map[string]any)
		if !ok {
			errs.add(path, "must be an object")
			continue
		}
		var day Day
		for _, slot := range MealSlots {
			day.setMeal(slot.Key, itemList(dayObj[slot.Key], path+"."+slot.Key, errs))
		}
		days[key] = day
	}

	var extra []string
	for key := range obj {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		errs.add("weekly_plan."+key, "is not a plan day")
	}
	return days
}

// itemList checks for a non-empty list of non-blank single-line strings.
func itemList(v any, path string, errs *violations) []string {
	if v == nil {
		errs.add(path, "is required")
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		errs.add(path, "must be a list")
		return nil
	}
	if len(list) == 0 {
		errs.add(path, "must not be empty")
		return nil
	}
	items := make([]string, 0, len(list))
	for i, raw := range list {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		s, ok := raw.(string)
		switch {
		case !ok:
			errs.add(itemPath, "must be a string")
		case strings.TrimSpace(s) == "":
			errs.add(itemPath, "must not be blank")
		case strings.ContainsAny(s, "\r\n"):
			errs.add(itemPath, "must be a single line")
		default:
			items = append(items, strings.TrimSpace(s))
		}
	}
	return items
}

func nonBlankString(root map[string]any, key string, errs *violations) string {
	raw, present := root[key]
	if !present || raw == nil {
		errs.add(key, "is required")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		errs.add(key, "must be a string")
		return ""
	}
	if strings.TrimSpace(s) == "" {
		errs.add(key, "must not be blank")
		return ""
	}
	return strings.TrimSpace(s)
}

func positiveNumber(root map[string]any, key string, errs *violations) float64 {
	var f float64
	switch n := root[key].(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			errs.add(key, "must be a number")
			return 0
		}
		f = parsed
	case float64:
		f = n
	case nil:
		errs.add(key, "is required")
		return 0
	default:
		errs.add(key, "must be a number")
		return 0
	}
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		errs.add(key, "must be positive")
		return 0
	}
	return f
}
