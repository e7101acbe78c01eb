package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"flowdeck/internal/config"
	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

const (
	feedScanBufferSize = 64 * 1024
	feedMaxLineSize    = 1024 * 1024
	feedLogLineLimit   = 200
)

var (
	errBlankFrame   = errors.New("blank frame")
	errFrameTooLong = errors.New("frame exceeds size limit")
)

// StreamActivities opens the live activity feed for runID and calls handler
// once per parsed record until the server closes the feed (nil), ctx is
// cancelled (ctx.Err()), or the connection fails. Malformed frames are logged
// and skipped. No Record callback fires once ctx is done.
func (c *Client) StreamActivities(ctx context.Context, runID string, handler types.ActivityHandler) error {
	path, err := runPath(runID)
	if err != nil {
		return err
	}
	feed := &feedReader{
		logger: c.logger.With(logging.F("run_id", runID), logging.F("conn", logging.NewConnectionID())),
		debug:  c.streamDebug,
		start:  time.Now(),
	}
	if c.feedTransport == config.FeedTransportWebSocket {
		return c.streamActivitiesWebSocket(ctx, path+"/activities/ws", handler, feed)
	}
	return c.streamActivitiesNDJSON(ctx, path+"/activities?follow=1", handler, feed)
}

func (c *Client) streamActivitiesNDJSON(ctx context.Context, path string, handler types.ActivityHandler, feed *feedReader) error {
	url := c.baseURL + path
	feed.trace("activity feed open", logging.F("url", url), logging.F("transport", config.FeedTransportNDJSON))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req.Header)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("open activity feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		feed.trace("activity feed rejected", logging.F("status", resp.StatusCode))
		return decodeAPIError(resp)
	}
	handler.NotifyOpened()

	lines := newFrameReader(resp.Body)
	for {
		frame, size, err := lines.next()
		if ctxErr := ctx.Err(); ctxErr != nil {
			feed.closed(ctxErr)
			return ctxErr
		}
		if size > feedMaxLineSize {
			feed.logger.Warn("activity feed frame skipped", logging.Err(errFrameTooLong), logging.F("bytes", size), logging.F("frame", clipFrame(frame)))
		} else if len(frame) > 0 {
			feed.handleFrame(ctx, frame, handler)
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			feed.closed(nil)
			return nil
		default:
			feed.closed(err)
			return fmt.Errorf("read activity feed: %w", err)
		}
	}
}

// frameReader splits a feed body into lines. Lines longer than
// feedMaxLineSize are reported with their full size but only the retained
// prefix, so the caller can skip them and keep reading.
type frameReader struct {
	reader *bufio.Reader
	buf    []byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{reader: bufio.NewReaderSize(r, feedScanBufferSize)}
}

func (r *frameReader) next() ([]byte, int, error) {
	r.buf = r.buf[:0]
	size := 0
	for {
		chunk, err := r.reader.ReadSlice('\n')
		size += len(chunk)
		if len(r.buf) <= feedMaxLineSize {
			r.buf = append(r.buf, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return r.buf, size, err
	}
}

type feedReader struct {
	logger logging.Logger
	debug  bool
	start  time.Time
	count  int
}

func (f *feedReader) trace(msg string, fields ...logging.Field) {
	if !f.debug {
		return
	}
	f.logger.Info(msg, fields...)
}

func (f *feedReader) handleFrame(ctx context.Context, frame []byte, handler types.ActivityHandler) {
	record, err := decodeActivityFrame(frame)
	if err != nil {
		if !errors.Is(err, errBlankFrame) {
			f.logger.Warn("activity feed frame skipped", logging.Err(err), logging.F("frame", clipFrame(frame)))
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	f.count++
	if f.count == 1 {
		f.trace("activity feed first record", logging.F("id", record.ID))
	}
	handler.Deliver(record)
}

func (f *feedReader) closed(err error) {
	fields := []logging.Field{logging.F("count", f.count), logging.F("dur", time.Since(f.start))}
	if err != nil {
		fields = append(fields, logging.Err(err))
	}
	f.trace("activity feed close", fields...)
}

// decodeActivityFrame accepts one NDJSON line. SSE "data:" framing is
// tolerated; other SSE fields and comments are treated as blank.
func decodeActivityFrame(frame []byte) (types.ActivityRecord, error) {
	line := bytes.TrimSpace(frame)
	if len(line) == 0 || line[0] == ':' {
		return types.ActivityRecord{}, errBlankFrame
	}
	if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
		line = bytes.TrimSpace(rest)
	} else if isSSEField(line) {
		return types.ActivityRecord{}, errBlankFrame
	}
	var record types.ActivityRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return types.ActivityRecord{}, fmt.Errorf("decode activity: %w", err)
	}
	return record, nil
}

func isSSEField(line []byte) bool {
	for _, prefix := range []string{"event:", "id:", "retry:"} {
		if bytes.HasPrefix(line, []byte(prefix)) {
			return true
		}
	}
	return false
}

func clipFrame(frame []byte) string {
	if len(frame) <= feedLogLineLimit {
		return string(frame)
	}
	return string(frame[:feedLogLineLimit]) + "..."
}
