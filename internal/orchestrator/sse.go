package orchestrator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Named events carried on the push channel.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
	EventTimeout  = "timeout"
)

// StreamEvent is one named server-sent event with its JSON payload.
type StreamEvent struct {
	Name string
	Data []byte
}

// ErrStopStream is returned by a stream handler to stop reading without
// treating the stream end as a transport failure.
var ErrStopStream = errors.New("stop stream")

// ErrStreamClosed reports that the push channel ended without a terminal
// event. Callers treat this as transient and may reconnect.
var ErrStreamClosed = errors.New("stream closed")

// StreamEvents opens the push channel for a job and invokes handler for every
// named event until the handler returns ErrStopStream, the context is
// canceled, or the connection drops.
func (c *Client) StreamEvents(ctx context.Context, jobID string, handler func(StreamEvent) error) error {
	if strings.TrimSpace(jobID) == "" {
		return fmt.Errorf("job id required")
	}
	if handler == nil {
		return fmt.Errorf("stream handler required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/stream/"+url.PathEscape(jobID)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(resp.StatusCode, readErrorMessage(resp.Body))
	}

	err = decodeEventStream(resp.Body, handler)
	switch {
	case errors.Is(err, ErrStopStream):
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	default:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrStreamClosed
	}
}

// decodeEventStream parses text/event-stream frames. Multi-line data fields
// are joined with newlines; comment and id fields are ignored.
func decodeEventStream(r io.Reader, handler func(StreamEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 16*1024), 512*1024)

	var (
		name string
		data []string
	)
	dispatch := func() error {
		if len(data) == 0 {
			name = ""
			return nil
		}
		event := StreamEvent{
			Name: name,
			Data: []byte(strings.Join(data, "\n")),
		}
		if event.Name == "" {
			event.Name = "message"
		}
		name = ""
		data = data[:0]
		return handler(event)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// Comment/keepalive.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// Flush a final frame that was not newline-terminated.
	return dispatch()
}
