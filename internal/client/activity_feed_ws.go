package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"flowdeck/internal/config"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

func (c *Client) streamActivitiesWebSocket(ctx context.Context, path string, handler types.ActivityHandler, feed *feedReader) error {
	target, err := websocketURL(c.baseURL + path)
	if err != nil {
		return err
	}
	feed.trace("activity feed open", logging.F("url", target), logging.F("transport", config.FeedTransportWebSocket))
	header := http.Header{}
	c.authorize(header)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			feed.trace("activity feed rejected", logging.F("status", resp.StatusCode))
			return decodeAPIError(resp)
		}
		return fmt.Errorf("open activity feed: %w", err)
	}
	defer conn.Close()
	handler.NotifyOpened()

	// ReadMessage does not observe ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				feed.closed(ctxErr)
				return ctxErr
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				feed.closed(nil)
				return nil
			}
			feed.closed(err)
			return fmt.Errorf("read activity feed: %w", err)
		}
		for _, frame := range strings.Split(string(data), "\n") {
			feed.handleFrame(ctx, []byte(frame), handler)
		}
	}
}

func websocketURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported feed scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
