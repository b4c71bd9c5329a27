// internal/models/foodlog.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

var (
	ErrInvalidMeal = errors.New("invalid meal slot")
	ErrMissingFood = errors.New("food name is required")
	ErrMissingDate = errors.New("date is required")
)

type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
	Snack     MealSlot = "snack"
)

// ParseMealSlot accepts any casing and surrounding whitespace.
func ParseMealSlot(s string) (MealSlot, error) {
	switch slot := MealSlot(strings.ToLower(strings.TrimSpace(s))); slot {
	case Breakfast, Lunch, Dinner, Snack:
		return slot, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMeal, s)
	}
}

type FoodLogEntry struct {
	ID        string    `json:"id"`
	Food      string    `json:"food"`
	Quantity  string    `json:"quantity"`
	Meal      MealSlot  `json:"meal"`
	Date      time.Time `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Day returns the entry date formatted as YYYY-MM-DD.
func (e *FoodLogEntry) Day() string {
	return e.Date.Format(DateLayout)
}

func (e *FoodLogEntry) Validate() error {
	if strings.TrimSpace(e.Food) == "" {
		return ErrMissingFood
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if _, err := ParseMealSlot(string(e.Meal)); err != nil {
		return err
	}
	return nil
}

// FoodLogView is the JSON shape returned to tool callers.
type FoodLogView struct {
	ID        string    `json:"id"`
	Food      string    `json:"food"`
	Quantity  string    `json:"quantity"`
	Meal      MealSlot  `json:"meal"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *FoodLogEntry) View() FoodLogView {
	return FoodLogView{
		ID:        e.ID,
		Food:      e.Food,
		Quantity:  e.Quantity,
		Meal:      e.Meal,
		Date:      e.Day(),
		CreatedAt: e.CreatedAt,
	}
}

// EntryCalories is the per-entry breakdown behind a daily total.
type EntryCalories struct {
	Entry           FoodLogView `json:"entry"`
	Known           bool        `json:"known"`
	ServingCalories int         `json:"serving_calories"`
	Multiplier      float64     `json:"multiplier"`
	Calories        float64     `json:"calories"`
}

type DailyTotal struct {
	Date     string          `json:"date"`
	Calories int             `json:"calories"`
	Entries  []EntryCalories `json:"entries"`
}

type StreakReport struct {
	Today       string `json:"today"`
	Streak      int    `json:"streak"`
	LoggedToday bool   `json:"logged_today"`
}
