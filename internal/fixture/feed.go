package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"flowdeck/internal/logging"
)

const wsWriteTimeout = 5 * time.Second

// frameWriter sends one encoded feed frame.
type frameWriter func(frame []byte) error

// replay walks the run's activity steps, honoring delays and repeats. It
// returns ctx.Err() when the client goes away mid-replay.
func replay(ctx context.Context, run RunScenario, write frameWriter) error {
	for _, step := range run.Activities {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		frame, err := encodeStep(step)
		if err != nil {
			return err
		}
		for i := 0; i <= step.Repeat; i++ {
			if err := write(frame); err != nil {
				return err
			}
		}
	}
	if run.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func encodeStep(step ActivityStep) ([]byte, error) {
	if step.Raw != "" {
		return []byte(step.Raw), nil
	}
	return json.Marshal(step.Record())
}

func (s *Server) streamActivities(c echo.Context) error {
	run, ok := s.lookupRun(c)
	if !ok {
		return jsonError(c, http.StatusNotFound, "run not found")
	}
	if run.FeedStatus != 0 {
		return jsonError(c, run.FeedStatus, "activity feed unavailable")
	}
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	logger := s.logger.With(logging.F("run_id", run.ID), logging.F("transport", "ndjson"))
	logger.Info("fixture feed open")
	err := replay(c.Request().Context(), run, func(frame []byte) error {
		if _, err := resp.Write(append(frame, '\n')); err != nil {
			return err
		}
		resp.Flush()
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("fixture feed aborted", logging.Err(err))
	}
	logger.Info("fixture feed closed")
	return nil
}

func (s *Server) streamActivitiesWebSocket(c echo.Context) error {
	run, ok := s.lookupRun(c)
	if !ok {
		return jsonError(c, http.StatusNotFound, "run not found")
	}
	if run.FeedStatus != 0 {
		return jsonError(c, run.FeedStatus, "activity feed unavailable")
	}
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("fixture websocket upgrade failed", logging.Err(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	// Reads detect the client closing the socket.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := s.logger.With(logging.F("run_id", run.ID), logging.F("transport", "websocket"))
	logger.Info("fixture feed open")
	err = replay(ctx, run, func(frame []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(websocket.TextMessage, frame)
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("fixture feed aborted", logging.Err(err))
		}
		return nil
	}
	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed complete")
	_ = conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(wsWriteTimeout))
	logger.Info("fixture feed closed")
	return nil
}
