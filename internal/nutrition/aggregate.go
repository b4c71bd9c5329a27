// internal/nutrition/aggregate.go
package nutrition

import (
	"math"
	"sort"
	"time"

	"mcp-nutrition-log/internal/models"
)

// PerUnitScale converts reference-table calories to one logged serving. The
// reference CSV stores calories for a smaller base unit than a meal serving;
// recalibrate this if the table's unit changes.
const PerUnitScale = 6.0

type Config struct {
	PerUnitScale float64
}

func DefaultConfig() Config {
	return Config{PerUnitScale: PerUnitScale}
}

// Engine computes calorie totals. It holds no state besides its config, so one
// Engine can serve concurrent callers.
type Engine struct {
	config Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.PerUnitScale <= 0 {
		cfg.PerUnitScale = PerUnitScale
	}
	return &Engine{config: cfg}
}

func (e *Engine) Config() Config {
	return e.config
}

// Estimate resolves a single entry. Unknown foods and foods with zero calories
// both contribute nothing.
func (e *Engine) Estimate(entry *models.FoodLogEntry, table *Table) models.EntryCalories {
	out := models.EntryCalories{
		Entry:      entry.View(),
		Multiplier: ParseMultiplier(entry.Quantity),
	}

	value, ok := Resolve(entry.Food, table)
	out.Known = ok
	if !ok || value == 0 {
		return out
	}

	serving := float64(value) * e.config.PerUnitScale
	out.ServingCalories = int(math.Round(serving))
	out.Calories = serving * out.Multiplier
	return out
}

// DailyTotal sums the entries logged on day. Entries from other days are
// ignored. Rounding happens once on the sum, not per entry.
func (e *Engine) DailyTotal(entries []models.FoodLogEntry, day time.Time, table *Table) models.DailyTotal {
	total := models.DailyTotal{
		Date:    CalendarDay(day).Format(models.DateLayout),
		Entries: []models.EntryCalories{},
	}

	var contributions []float64
	for i := range entries {
		if !SameDay(entries[i].Date, day) {
			continue
		}
		est := e.Estimate(&entries[i], table)
		total.Entries = append(total.Entries, est)
		contributions = append(contributions, est.Calories)
	}

	// Fixed summation order keeps the float sum independent of entry order.
	sort.Float64s(contributions)
	var sum float64
	for _, c := range contributions {
		sum += c
	}
	total.Calories = int(math.Round(sum))

	return total
}

func (e *Engine) Aggregate(entries []models.FoodLogEntry, day time.Time, table *Table) int {
	return e.DailyTotal(entries, day, table).Calories
}

// Aggregate totals a day's entries with the default scale.
func Aggregate(entries []models.FoodLogEntry, day time.Time, table *Table) int {
	return NewEngine(DefaultConfig()).Aggregate(entries, day, table)
}
