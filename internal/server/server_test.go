package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-nutrition-log/internal/config"
	"mcp-nutrition-log/internal/models"
	"mcp-nutrition-log/internal/nutrition"
)

var testNow = time.Date(2026, 10, 19, 18, 45, 0, 0, time.UTC)

type textResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) (*NutritionLogServer, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "food_calories.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("food,calories\nrice,200\negg,78\nbanana bread,326\n"), 0o644))

	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "nutrition.db")
	cfg.CaloriesCSV = csvPath
	cfg.Port = 18011
	for _, opt := range opts {
		opt(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewNutritionLogServer(cfg, logger, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.storage.Close()
	})
	return srv, ts
}

func callTool(t *testing.T, ts *httptest.Server, name string, args map[string]interface{}) (int, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, string(raw)
	}

	var res textResult
	require.NoError(t, json.Unmarshal(raw, &res))
	require.Len(t, res.Content, 1)
	assert.Equal(t, "text", res.Content[0].Type)
	return resp.StatusCode, res.Content[0].Text
}

func decode[T any](t *testing.T, text string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(text), &v))
	return v
}

func logFood(t *testing.T, ts *httptest.Server, food, quantity, meal, date string) models.FoodLogView {
	t.Helper()
	status, text := callTool(t, ts, "log_food", map[string]interface{}{
		"food": food, "quantity": quantity, "meal": meal, "date": date,
	})
	require.Equal(t, http.StatusOK, status, text)
	return decode[models.FoodLogView](t, text)
}

func TestLogFoodAndDailyCalories(t *testing.T) {
	_, ts := newTestServer(t)

	logFood(t, ts, "rice", "2 cups", "lunch", "2026-10-19")
	logFood(t, ts, "Boiled Egg", "1", "Breakfast", "")
	logFood(t, ts, "rice", "5", "dinner", "2026-10-18")
	logFood(t, ts, "mystery stew", "2", "dinner", "2026-10-19")

	status, text := callTool(t, ts, "daily_calories", map[string]interface{}{"date": "2026-10-19"})
	require.Equal(t, http.StatusOK, status, text)

	total := decode[models.DailyTotal](t, text)
	assert.Equal(t, "2026-10-19", total.Date)
	assert.Equal(t, 2868, total.Calories)
	assert.Len(t, total.Entries, 3)

	unknown := 0
	for _, e := range total.Entries {
		if !e.Known {
			unknown++
		}
	}
	assert.Equal(t, 1, unknown)

	// Defaults to today on the injected clock.
	_, text = callTool(t, ts, "daily_calories", nil)
	assert.Equal(t, 2868, decode[models.DailyTotal](t, text).Calories)
}

func TestDailyCalories_EmptyDay(t *testing.T) {
	_, ts := newTestServer(t)

	status, text := callTool(t, ts, "daily_calories", map[string]interface{}{"date": "2025-01-01"})
	require.Equal(t, http.StatusOK, status)
	total := decode[models.DailyTotal](t, text)
	assert.Equal(t, 0, total.Calories)
	assert.Empty(t, total.Entries)
}

func TestLoggingStreak(t *testing.T) {
	_, ts := newTestServer(t)

	_, text := callTool(t, ts, "logging_streak", nil)
	assert.Equal(t, models.StreakReport{Today: "2026-10-19"}, decode[models.StreakReport](t, text))

	logFood(t, ts, "rice", "1", "lunch", "2026-10-18")
	logFood(t, ts, "egg", "1", "lunch", "2026-10-17")
	logFood(t, ts, "egg", "1", "snack", "2026-10-17")
	logFood(t, ts, "egg", "1", "lunch", "2026-10-15")

	_, text = callTool(t, ts, "logging_streak", nil)
	assert.Equal(t, models.StreakReport{Today: "2026-10-19", Streak: 2}, decode[models.StreakReport](t, text))

	logFood(t, ts, "tea", "1", "breakfast", "2026-10-19")
	_, text = callTool(t, ts, "logging_streak", nil)
	assert.Equal(t, models.StreakReport{Today: "2026-10-19", Streak: 3, LoggedToday: true}, decode[models.StreakReport](t, text))

	_, text = callTool(t, ts, "logging_streak", map[string]interface{}{"today": "2026-10-16"})
	assert.Equal(t, 1, decode[models.StreakReport](t, text).Streak)
}

func TestFoodLogCRUD(t *testing.T) {
	_, ts := newTestServer(t)

	created := logFood(t, ts, "rice", "1 bowl", "lunch", "2026-10-19")
	require.NotEmpty(t, created.ID)

	status, text := callTool(t, ts, "get_food_log", map[string]interface{}{"id": created.ID})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created, decode[models.FoodLogView](t, text))

	status, text = callTool(t, ts, "update_food_log", map[string]interface{}{
		"id": created.ID, "quantity": "2 bowls", "meal": "dinner",
	})
	require.Equal(t, http.StatusOK, status, text)
	updated := decode[models.FoodLogView](t, text)
	assert.Equal(t, "rice", updated.Food)
	assert.Equal(t, "2 bowls", updated.Quantity)
	assert.Equal(t, models.Dinner, updated.Meal)

	_, text = callTool(t, ts, "get_food_logs", map[string]interface{}{"date": "2026-10-19"})
	assert.Len(t, decode[[]models.FoodLogView](t, text), 1)

	status, _ = callTool(t, ts, "delete_food_log", map[string]interface{}{"id": created.ID})
	require.Equal(t, http.StatusOK, status)

	status, _ = callTool(t, ts, "get_food_log", map[string]interface{}{"id": created.ID})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = callTool(t, ts, "delete_food_log", map[string]interface{}{"id": created.ID})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetFoodLogs_Limit(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.config.DefaultLimit = 2

	for i := 0; i < 3; i++ {
		logFood(t, ts, "egg", "1", "snack", "2026-10-19")
	}

	_, text := callTool(t, ts, "get_food_logs", nil)
	assert.Len(t, decode[[]models.FoodLogView](t, text), 2)

	_, text = callTool(t, ts, "get_food_logs", map[string]interface{}{"limit": 10})
	assert.Len(t, decode[[]models.FoodLogView](t, text), 3)
}

func TestLookupCalories(t *testing.T) {
	_, ts := newTestServer(t)

	_, text := callTool(t, ts, "lookup_calories", map[string]interface{}{"query": "E"})
	res := decode[lookupResult](t, text)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []nutrition.Item{{Name: "banana bread", Calories: 326}, {Name: "egg", Calories: 78}, {Name: "rice", Calories: 200}}, res.Items)

	_, text = callTool(t, ts, "lookup_calories", map[string]interface{}{"query": "pizza"})
	assert.Empty(t, decode[lookupResult](t, text).Items)
}

func TestToolErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want int
	}{
		{"unknown tool", "order_pizza", nil, http.StatusNotFound},
		{"bad meal", "log_food", map[string]interface{}{"food": "rice", "meal": "brunch"}, http.StatusBadRequest},
		{"missing food", "log_food", map[string]interface{}{"meal": "lunch"}, http.StatusBadRequest},
		{"bad date", "log_food", map[string]interface{}{"food": "rice", "meal": "lunch", "date": "19/10/2026"}, http.StatusBadRequest},
		{"bad filter", "get_food_logs", map[string]interface{}{"start_date": "yesterday"}, http.StatusBadRequest},
		{"wrong type", "get_food_logs", map[string]interface{}{"limit": "ten"}, http.StatusBadRequest},
		{"missing id", "get_food_log", nil, http.StatusBadRequest},
		{"update missing", "update_food_log", map[string]interface{}{"id": "nope"}, http.StatusNotFound},
		{"bad streak day", "logging_streak", map[string]interface{}{"today": "soon"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := callTool(t, ts, tt.tool, tt.args)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestHTTPMethodsAndTools(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(ts.URL+"/", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Server struct {
			Name string `json:"name"`
		} `json:"server"`
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, "nutrition-log", list.Server.Name)
	require.Len(t, list.Tools, 15)
	assert.Equal(t, "chat", list.Tools[0].Name)
	assert.Equal(t, "update_symptom_log", list.Tools[14].Name)
}
