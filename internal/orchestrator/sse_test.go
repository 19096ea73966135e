package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDecodeEventStreamParsesNamedEvents(t *testing.T) {
	payload := strings.Join([]string{
		": keepalive",
		"event: progress",
		`data: {"stage":"extracting","progressPercent":10}`,
		"",
		"event: progress",
		"data: line one",
		"data: line two",
		"",
		`data: {"unnamed":true}`,
		"",
	}, "\n")

	var events []StreamEvent
	err := decodeEventStream(strings.NewReader(payload), func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Name != EventProgress || !strings.Contains(string(events[0].Data), "extracting") {
		t.Fatalf("unexpected first event: %#v", events[0])
	}
	if string(events[1].Data) != "line one\nline two" {
		t.Fatalf("multi-line data not joined: %q", events[1].Data)
	}
	if events[2].Name != "message" {
		t.Fatalf("unnamed event should default to message, got %q", events[2].Name)
	}
}

func TestDecodeEventStreamFlushesFinalFrame(t *testing.T) {
	payload := "event: complete\ndata: {\"stage\":\"completed\"}"

	var got *StreamEvent
	err := decodeEventStream(strings.NewReader(payload), func(event StreamEvent) error {
		got = &event
		return nil
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got == nil || got.Name != EventComplete {
		t.Fatalf("expected trailing frame to dispatch, got %#v", got)
	}
}

func TestDecodeEventStreamStopsOnHandlerError(t *testing.T) {
	payload := "event: progress\ndata: a\n\nevent: progress\ndata: b\n\n"

	count := 0
	err := decodeEventStream(strings.NewReader(payload), func(event StreamEvent) error {
		count++
		return ErrStopStream
	})
	if !errors.Is(err, ErrStopStream) {
		t.Fatalf("expected ErrStopStream, got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected handler to run once, got %d", count)
	}
}

func writeSSE(t *testing.T, w http.ResponseWriter, name, data string) {
	t.Helper()
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		t.Errorf("write event: %v", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func TestStreamEventsStopsCleanlyOnHandlerRequest(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/job-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("unexpected accept header %q", accept)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(t, w, EventProgress, `{"stage":"extracting","progressPercent":20}`)
		writeSSE(t, w, EventComplete, `{"stage":"completed","progressPercent":100}`)
	}))

	var names []string
	err := client.StreamEvents(context.Background(), "job-1", func(event StreamEvent) error {
		names = append(names, event.Name)
		if event.Name == EventComplete {
			return ErrStopStream
		}
		return nil
	})
	if err != nil {
		t.Fatalf("StreamEvents failed: %v", err)
	}
	if len(names) != 2 || names[1] != EventComplete {
		t.Fatalf("unexpected event sequence: %v", names)
	}
}

func TestStreamEventsReportsServerDrop(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(t, w, EventProgress, `{"stage":"extracting"}`)
		// Handler returns, closing the connection without a terminal event.
	}))

	err := client.StreamEvents(context.Background(), "job-1", func(event StreamEvent) error {
		return nil
	})
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
}

func TestStreamEventsHonorsContextCancel(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(t, w, EventProgress, `{"stage":"extracting"}`)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan struct{}, 1)
	go func() {
		<-received
		cancel()
	}()

	err := client.StreamEvents(ctx, "job-1", func(event StreamEvent) error {
		select {
		case received <- struct{}{}:
		default:
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStreamEventsClassifiesHTTPErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown job"}`))
	}))

	err := client.StreamEvents(context.Background(), "job-1", func(event StreamEvent) error { return nil })
	if !IsRejected(err) {
		t.Fatalf("expected rejection for 404 stream, got %v", err)
	}

	down, err := NewClient("http://127.0.0.1:1", time.Second)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	err = down.StreamEvents(context.Background(), "job-1", func(event StreamEvent) error { return nil })
	if !IsUnavailable(err) {
		t.Fatalf("expected availability error, got %v", err)
	}
}
