// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-nutrition-log/internal/config"
	"mcp-nutrition-log/internal/models"
	"mcp-nutrition-log/internal/nutrition"
	"mcp-nutrition-log/internal/reference"
	"mcp-nutrition-log/internal/storage"
)

const Version = "1.0.0"

var errInvalidParams = errors.New("invalid parameters")

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	handler     toolHandler
}

type Option func(*NutritionLogServer)

// WithClock overrides time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *NutritionLogServer) { s.now = now }
}

type NutritionLogServer struct {
	info       protocol.Implementation
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	tables     *reference.Store
	engine     *nutrition.Engine
	chat       *SamplingClient
	config     *config.Config
	logger     *slog.Logger
	now        func() time.Time
	tools      map[string]tool
}

func NewNutritionLogServer(cfg *config.Config, logger *slog.Logger, opts ...Option) (*NutritionLogServer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	tables := reference.NewStore(cfg.CaloriesCSV, logger)
	if err := tables.Load(); err != nil {
		// Same as an empty table: every food resolves as unknown.
		logger.Error("calorie table unavailable", "path", cfg.CaloriesCSV, "error", err)
	}

	s := &NutritionLogServer{
		info: protocol.Implementation{
			Name:    "nutrition-log",
			Version: Version,
		},
		storage: stor,
		tables:  tables,
		engine:  nutrition.NewEngine(nutrition.Config{PerUnitScale: cfg.PerUnitScale}),
		chat:    NewSamplingClient(cfg.Chat),
		config:  cfg,
		logger:  logger.With("component", "server"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	mux.HandleFunc("/tools", s.handleListTools)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *NutritionLogServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *NutritionLogServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	t, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	start := time.Now()
	result, err := t.handler(r.Context(), &request)
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("tool call failed", "tool", request.Name, "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	s.logger.Debug("tool call", "tool", request.Name, "duration", time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidParams),
		errors.Is(err, models.ErrInvalidMeal),
		errors.Is(err, models.ErrMissingFood),
		errors.Is(err, models.ErrMissingDate),
		errors.Is(err, models.ErrMissingSymptom),
		errors.Is(err, models.ErrInvalidSeverity):
		return http.StatusBadRequest
	case errors.Is(err, errChatDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type toolList struct {
	Server protocol.Implementation `json:"server"`
	Tools  []tool                  `json:"tools"`
}

func (s *NutritionLogServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := toolList{Server: s.info}
	for _, t := range s.tools {
		list.Tools = append(list.Tools, t)
	}
	sort.Slice(list.Tools, func(i, j int) bool { return list.Tools[i].Name < list.Tools[j].Name })

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		s.logger.Error("failed to encode tool list", "error", err)
	}
}

// Start serves until Stop is called. If configured, the calorie table is
// reloaded whenever its file changes while ctx is alive.
func (s *NutritionLogServer) Start(ctx context.Context) error {
	if s.config.WatchCSV {
		if err := s.tables.Watch(ctx); err != nil {
			s.logger.Warn("calorie table watch disabled", "error", err)
		}
	}

	s.logger.Info("starting nutrition log server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *NutritionLogServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *NutritionLogServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
