package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"flowdeck/internal/client"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	scenario *Scenario
	logger   logging.Logger
	echo     *echo.Echo
	upgrader websocket.Upgrader
	now      func() time.Time

	mu       sync.Mutex
	messages map[string][]types.Message
}

type Option func(*Server)

func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logging.OrNop(logger)
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func NewServer(scenario *Scenario, opts ...Option) *Server {
	s := &Server{
		scenario: scenario,
		logger:   logging.Nop(),
		now:      time.Now,
		messages: map[string][]types.Message{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = logging.Component(s.logger, "fixture")
	for _, run := range scenario.Runs {
		s.messages[run.ID] = append([]types.Message(nil), run.Messages...)
	}
	s.echo = s.routes()
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("fixture request",
				logging.F("method", v.Method),
				logging.F("uri", v.URI),
				logging.F("status", v.Status),
				logging.F("latency", v.Latency))
			return nil
		},
	}))

	e.GET("/health", s.health)
	v1 := e.Group("/v1", s.requireToken)
	v1.GET("/runs", s.listRuns)
	v1.GET("/runs/:run_id", s.getRun)
	v1.GET("/runs/:run_id/activities", s.streamActivities)
	v1.GET("/runs/:run_id/activities/ws", s.streamActivitiesWebSocket)
	v1.GET("/runs/:run_id/activities/:key/knowledge", s.listDocuments(types.DocumentKindKnowledge))
	v1.GET("/runs/:run_id/activities/:key/instructions", s.listDocuments(types.DocumentKindInstruction))
	v1.GET("/runs/:run_id/messages", s.listMessages)
	v1.POST("/runs/:run_id/messages", s.sendMessage)
	return e
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("fixture server listening", logging.F("addr", addr), logging.F("scenario", s.scenario.Name))
		errCh <- s.echo.Start(addr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimSpace(s.scenario.Token)
		if token == "" {
			return next(c)
		}
		if c.Request().Header.Get("Authorization") != "Bearer "+token {
			return jsonError(c, http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, client.HealthResponse{OK: true, Version: s.scenario.Version})
}

func (s *Server) listRuns(c echo.Context) error {
	runs := make([]types.WorkflowRun, 0, len(s.scenario.Runs))
	for _, run := range s.scenario.Runs {
		runs = append(runs, run.WorkflowRun())
	}
	return c.JSON(http.StatusOK, client.WorkflowRunsResponse{Runs: runs})
}

func (s *Server) getRun(c echo.Context) error {
	run, ok := s.lookupRun(c)
	if !ok {
		return jsonError(c, http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, run.WorkflowRun())
}

func (s *Server) listDocuments(kind types.DocumentKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		run, ok := s.lookupRun(c)
		if !ok {
			return jsonError(c, http.StatusNotFound, "run not found")
		}
		key := param(c, "key")
		source := run.Knowledge
		if kind == types.DocumentKindInstruction {
			source = run.Instructions
		}
		docs := make([]types.Document, 0, len(source[key]))
		for _, doc := range source[key] {
			doc.Kind = kind
			docs = append(docs, doc)
		}
		return c.JSON(http.StatusOK, client.DocumentsResponse{Documents: docs})
	}
}

func (s *Server) listMessages(c echo.Context) error {
	run, ok := s.lookupRun(c)
	if !ok {
		return jsonError(c, http.StatusNotFound, "run not found")
	}
	s.mu.Lock()
	messages := append([]types.Message{}, s.messages[run.ID]...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, client.MessagesResponse{Messages: messages})
}

// sendMessage records an outbound message. A repeated id returns the
// message stored the first time.
func (s *Server) sendMessage(c echo.Context) error {
	run, ok := s.lookupRun(c)
	if !ok {
		return jsonError(c, http.StatusNotFound, "run not found")
	}
	var req client.SendMessageRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid message body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return jsonError(c, http.StatusBadRequest, "text is required")
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.messages[run.ID] {
		if existing.ID == id {
			return c.JSON(http.StatusOK, existing)
		}
	}
	msg := types.Message{
		ID:        id,
		RunID:     run.ID,
		Direction: types.MessageDirectionOutbound,
		Text:      req.Text,
		SentTime:  s.now().UTC().Format(time.RFC3339),
	}
	s.messages[run.ID] = append(s.messages[run.ID], msg)
	return c.JSON(http.StatusCreated, msg)
}

func (s *Server) lookupRun(c echo.Context) (RunScenario, bool) {
	return s.scenario.run(param(c, "run_id"))
}

func param(c echo.Context, name string) string {
	raw := c.Param(name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
