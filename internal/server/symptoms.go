// internal/server/symptoms.go
package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/google/uuid"

	"mcp-nutrition-log/internal/models"
	"mcp-nutrition-log/internal/storage"
)

type LogSymptomParams struct {
	Symptom  string `json:"symptom" description:"What was felt, e.g. \"headache\""`
	Severity string `json:"severity,omitempty" description:"mild, moderate or severe (defaults to mild)"`
	Notes    string `json:"notes,omitempty"`
	Date     string `json:"date,omitempty" description:"Date noticed (YYYY-MM-DD, defaults to today)"`
}

// UpdateSymptomLogParams leaves fields that are nil unchanged.
type UpdateSymptomLogParams struct {
	ID       string  `json:"id" description:"Symptom log entry ID"`
	Symptom  *string `json:"symptom,omitempty"`
	Severity *string `json:"severity,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	Date     *string `json:"date,omitempty"`
}

func (s *NutritionLogServer) handleLogSymptom(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogSymptomParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	severity, err := models.ParseSeverity(params.Severity)
	if err != nil {
		return nil, err
	}
	date, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	entry := &models.SymptomLogEntry{
		ID:        uuid.NewString(),
		Symptom:   strings.TrimSpace(params.Symptom),
		Severity:  severity,
		Notes:     strings.TrimSpace(params.Notes),
		Date:      date,
		CreatedAt: s.now(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.SaveSymptom(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save symptom log: %w", err)
	}

	s.logger.Info("symptom logged", "id", entry.ID, "severity", entry.Severity, "date", entry.Day())
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleGetSymptomLogs(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
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

	entries, err := s.storage.ListSymptoms(ctx, storage.Filter{
		Date:      params.Date,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve symptom logs: %w", err)
	}

	views := make([]models.SymptomLogView, 0, len(entries))
	for i := range entries {
		views = append(views, entries[i].View())
	}
	return s.createJSONResponse(views)
}

func (s *NutritionLogServer) handleGetSymptomLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FoodLogIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	entry, err := s.storage.GetSymptom(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleUpdateSymptomLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateSymptomLogParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	entry, err := s.storage.GetSymptom(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.Symptom != nil {
		entry.Symptom = strings.TrimSpace(*params.Symptom)
	}
	if params.Severity != nil {
		if entry.Severity, err = models.ParseSeverity(*params.Severity); err != nil {
			return nil, err
		}
	}
	if params.Notes != nil {
		entry.Notes = strings.TrimSpace(*params.Notes)
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

	if err := s.storage.UpdateSymptom(ctx, entry); err != nil {
		return nil, err
	}
	return s.createJSONResponse(entry.View())
}

func (s *NutritionLogServer) handleDeleteSymptomLog(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params FoodLogIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidParams)
	}

	if err := s.storage.DeleteSymptom(ctx, params.ID); err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{"deleted": params.ID})
}
