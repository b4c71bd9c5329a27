package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mcp-nutrition-log/internal/config"
	"mcp-nutrition-log/internal/models"
	"mcp-nutrition-log/internal/nutrition"
	"mcp-nutrition-log/internal/reference"
	"mcp-nutrition-log/internal/storage"
)

var (
	reportDate string
	reportJSON bool
)

var caloriesCmd = &cobra.Command{
	Use:   "calories",
	Short: "Print the estimated calories for a day",
	RunE:  runCalories,
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Print the current logging streak",
	RunE:  runStreak,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [query]",
	Short: "Search the calorie reference table",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLookup,
}

func init() {
	for _, c := range []*cobra.Command{caloriesCmd, streakCmd, lookupCmd} {
		c.Flags().BoolVar(&reportJSON, "json", false, "Print JSON instead of text")
		rootCmd.AddCommand(c)
	}
	caloriesCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Day to report (YYYY-MM-DD, default today)")
	streakCmd.Flags().StringVarP(&reportDate, "date", "d", "", "Reference day (YYYY-MM-DD, default today)")
}

func reportDay() (time.Time, error) {
	if reportDate == "" {
		return nutrition.CalendarDay(time.Now()), nil
	}
	d, err := time.Parse(models.DateLayout, reportDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", reportDate, err)
	}
	return d, nil
}

func loadTable(cfg *config.Config, logger *slog.Logger) *nutrition.Table {
	tables := reference.NewStore(cfg.CaloriesCSV, logger)
	if err := tables.Load(); err != nil {
		logger.Warn("calorie table unavailable", "error", err)
	}
	return tables.Table()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runCalories(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	day, err := reportDay()
	if err != nil {
		return err
	}

	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer stor.Close()

	entries, err := stor.EntriesForDate(context.Background(), day)
	if err != nil {
		return err
	}

	engine := nutrition.NewEngine(nutrition.Config{PerUnitScale: cfg.PerUnitScale})
	total := engine.DailyTotal(entries, day, loadTable(cfg, logger))

	out := cmd.OutOrStdout()
	if reportJSON {
		return printJSON(out, total)
	}

	fmt.Fprintf(out, "%s: %d calories\n", total.Date, total.Calories)
	for _, e := range total.Entries {
		if !e.Known {
			fmt.Fprintf(out, "  - %s (%s, %s): unknown\n", e.Entry.Food, e.Entry.Quantity, e.Entry.Meal)
			continue
		}
		fmt.Fprintf(out, "  - %s (%s, %s): %.0f cal\n", e.Entry.Food, e.Entry.Quantity, e.Entry.Meal, e.Calories)
	}
	return nil
}

func runStreak(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	today, err := reportDay()
	if err != nil {
		return err
	}

	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer stor.Close()

	dates, err := stor.LogDates(context.Background())
	if err != nil {
		return err
	}

	report := models.StreakReport{
		Today:       today.Format(models.DateLayout),
		Streak:      nutrition.Streak(dates, today),
		LoggedToday: nutrition.LoggedOn(dates, today),
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		return printJSON(out, report)
	}
	fmt.Fprintf(out, "Logging streak: %d day(s)\n", report.Streak)
	if !report.LoggedToday {
		fmt.Fprintln(out, "Nothing logged today yet.")
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	items := loadTable(cfg, logger).Search(query)

	out := cmd.OutOrStdout()
	if reportJSON {
		if items == nil {
			items = []nutrition.Item{}
		}
		return printJSON(out, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No matching food items found.")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(out, "%-30s %6d kcal\n", it.Name, it.Calories)
	}
	return nil
}
