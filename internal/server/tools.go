// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/google/uuid"

	"mcp-nutrition-log/internal/models"
	"mcp-nutrition-log/internal/nutrition"
	"mcp-nutrition-log/internal/storage"
)

type LogFoodParams struct {
	Food     string `json:"food" description:"Name of the food eaten"`
	Quantity string `json:"quantity" description:"Free-text amount, e.g. \"2 pieces\" or \"1/2 cup\""`
	Meal     string `json:"meal" description:"breakfast, lunch, dinner or snack"`
	Date     string `json:"date,omitempty" description:"Date eaten (YYYY-MM-DD, defaults to today)"`
}

type GetFoodLogsParams struct {
	Date      string `json:"date,omitempty" description:"Only entries for this date (YYYY-MM-DD)"`
	StartDate string `json:"start_date,omitempty" description:"Start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of entries to return"`
}

type FoodLogIDParams struct {
	ID string `json:"id" description:"Food log entry ID"`
}

// UpdateFoodLogParams leaves fields that are nil unchanged.
type UpdateFoodLogParams struct {
	ID       string  `json:"id" description:"Food log entry ID"`
	Food     *string `json:"food,omitempty"`
	Quantity *string `json:"quantity,omitempty"`
	Meal     *string `json:"meal,omitempty"`
	Date     *string `json:"date,omitempty"`
}

type DailyCaloriesParams struct {
	Date string `json:"date,omitempty" description:"Day to total (YYYY-MM-DD, defaults to today)"`
}

type StreakParams struct {
	Today string `json:"today,omitempty" description:"Reference day (YYYY-MM-DD, defaults to today)"`
}

type LookupParams struct {
	Query string `json:"query" description:"Part of a food name; empty lists the whole table"`
}

type ChatParams struct {
	Question string `json:"question" description:"Question about health, symptoms or food"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}

	return nil
}

// parseDay reads a YYYY-MM-DD value, falling back to today's date.
func (s *NutritionLogServer) parseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nutrition.CalendarDay(s.now()), nil
	}
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", errInvalidParams, value)
	}
	return d, nil
}

func validDateFilter(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, value); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", errInvalidParams, value)
	}
	return nil
}

func (s *NutritionLogServer) handleLogFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	meal, err := models.ParseMealSlot(params.Meal)
	if err != nil {
		return nil, err
	}
	date, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	entry := &models.FoodLogEntry{
		ID:        uuid.NewString(),
		Food:      strings.TrimSpace(params.Food),
		Quantity:  strings.TrimSpace(params.Quantity),
		Meal:      meal,
		Date:      date,
		CreatedAt: s.now(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.SaveEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save food log: %w", err)
	}

	s.logger.Info("food logged", "id", entry.ID, "meal", entry.Meal, "date", entry.Day())
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleGetFoodLogs(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetFoodLogsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	for _, d := range []string{params.Date, params.StartDate, params.EndDate} {
		if err := validDateFilter(d); err != nil {
			return nil, err
		}
	}
	if params.Limit <= 0 {
		params.Limit = s.config.DefaultLimit
	}

	entries, err := s.storage.ListEntries(ctx, storage.Filter{
		Date:      params.Date,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve food logs: %w", err)
	}

	views := make([]models.FoodLogView, 0, len(entries))
	for i := range entries {
		views = append(views, entries[i].View())
	}
	return s.createJSONResponse(views)
}

func (s *NutritionLogServer) handleGetFoodLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FoodLogIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	entry, err := s.storage.GetEntry(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleUpdateFoodLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateFoodLogParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	entry, err := s.storage.GetEntry(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.Food != nil {
		entry.Food = strings.TrimSpace(*params.Food)
	}
	if params.Quantity != nil {
		entry.Quantity = strings.TrimSpace(*params.Quantity)
	}
	if params.Meal != nil {
		if entry.Meal, err = models.ParseMealSlot(*params.Meal); err != nil {
			return nil, err
		}
	}
	if params.Date != nil {
		if strings.TrimSpace(*params.Date) == "" {
			return nil, models.ErrMissingDate
		}
		if entry.Date, err = s.parseDay(*params.Date); err != nil {
			return nil, err
		}
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleDeleteFoodLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FoodLogIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	if err := s.storage.DeleteEntry(ctx, params.ID); err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{"deleted": params.ID})
}

// handleDailyCalories recomputes the total from the stored entries and the
// current table snapshot on every call.
func (s *NutritionLogServer) handleDailyCalories(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DailyCaloriesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	day, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	entries, err := s.storage.EntriesForDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve food logs: %w", err)
	}

	total := s.engine.DailyTotal(entries, day, s.tables.Table())
	return s.createJSONResponse(total)
}

func (s *NutritionLogServer) handleLoggingStreak(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params StreakParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	today, err := s.parseDay(params.Today)
	if err != nil {
		return nil, err
	}

	dates, err := s.storage.LogDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve log dates: %w", err)
	}

	return s.createJSONResponse(models.StreakReport{
		Today:       today.Format(models.DateLayout),
		Streak:      nutrition.Streak(dates, today),
		LoggedToday: nutrition.LoggedOn(dates, today),
	})
}

type lookupResult struct {
	Query string           `json:"query"`
	Total int              `json:"table_size"`
	Items []nutrition.Item `json:"items"`
}

func (s *NutritionLogServer) handleLookupCalories(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LookupParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	table := s.tables.Table()
	items := table.Search(params.Query)
	if items == nil {
		items = []nutrition.Item{}
	}
	return s.createJSONResponse(lookupResult{
		Query: params.Query,
		Total: table.Len(),
		Items: items,
	})
}

type chatAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Model    string `json:"model"`
}

func (s *NutritionLogServer) handleChat(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ChatParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", errInvalidParams)
	}

	start := time.Now()
	answer, err := s.chat.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat answered", "model", s.chat.model, "duration", time.Since(start))

	return s.createJSONResponse(chatAnswer{
		Question: question,
		Answer:   answer,
		Model:    s.chat.model,
	})
}

func (s *NutritionLogServer) handleChatbotStatus(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	return s.createJSONResponse(s.chat.Status())
}

func (s *NutritionLogServer) registerTools() {
	tools := []tool{
		{Name: "log_food", Description: "Record a food eaten at a meal", handler: s.handleLogFood},
		{Name: "get_food_logs", Description: "List food log entries, newest first", handler: s.handleGetFoodLogs},
		{Name: "get_food_log", Description: "Fetch one food log entry", handler: s.handleGetFoodLog},
		{Name: "update_food_log", Description: "Change fields of a food log entry", handler: s.handleUpdateFoodLog},
		{Name: "delete_food_log", Description: "Remove a food log entry", handler: s.handleDeleteFoodLog},
		{Name: "daily_calories", Description: "Estimated calories eaten on a day", handler: s.handleDailyCalories},
		{Name: "logging_streak", Description: "Consecutive days with at least one food logged", handler: s.handleLoggingStreak},
		{Name: "lookup_calories", Description: "Search the calorie reference table", handler: s.handleLookupCalories},
		{Name: "log_symptom", Description: "Record a symptom or flare-up", handler: s.handleLogSymptom},
		{Name: "get_symptom_logs", Description: "List symptom log entries, newest first", handler: s.handleGetSymptomLogs},
		{Name: "get_symptom_log", Description: "Fetch one symptom log entry", handler: s.handleGetSymptomLog},
		{Name: "update_symptom_log", Description: "Change fields of a symptom log entry", handler: s.handleUpdateSymptomLog},
		{Name: "delete_symptom_log", Description: "Remove a symptom log entry", handler: s.handleDeleteSymptomLog},
		{Name: "chat", Description: "Ask the medical and nutrition assistant a question", handler: s.handleChat},
		{Name: "chatbot_status", Description: "Report how the assistant is configured", handler: s.handleChatbotStatus},
	}

	s.tools = make(map[string]tool, len(tools))
	for _, t := range tools {
		s.tools[t.Name] = t
		s.logger.Debug("registered tool", "tool", t.Name)
	}
}
