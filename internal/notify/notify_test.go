package notify

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hushlabs/hush-core/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []protocol.Status
}

func (s *recordingSink) Notify(status protocol.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

type panickySink struct{}

func (panickySink) Notify(protocol.Status) { panic("sink exploded") }

func TestReportReachesAllSinks(t *testing.T) {
	r := NewReporter(testLogger())
	a, b := &recordingSink{}, &recordingSink{}
	r.AddSink(a)
	r.AddSink(b)

	r.Report("sess-1", "accepted", "done")

	for _, s := range []*recordingSink{a, b} {
		if len(s.statuses) != 1 {
			t.Fatalf("expected one status, got %d", len(s.statuses))
		}
		got := s.statuses[0]
		if got.SessionID != "sess-1" || got.Outcome != "accepted" || got.Message != "done" {
			t.Fatalf("unexpected status: %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Fatal("status must be timestamped")
		}
	}
}

func TestPanickySinkIsIsolated(t *testing.T) {
	r := NewReporter(testLogger())
	healthy := &recordingSink{}
	r.AddSink(panickySink{})
	r.AddSink(healthy)

	r.Report("sess-2", "failed", "boom")

	if len(healthy.statuses) != 1 {
		t.Fatal("panicking sink must not starve the others")
	}
}

func TestCallbackSink(t *testing.T) {
	var got protocol.Status
	r := NewReporter(testLogger())
	r.AddSink(NewCallbackSink(func(s protocol.Status) { got = s }))

	r.Report("sess-3", "too_short", "recording too short")
	if got.Outcome != "too_short" {
		t.Fatalf("unexpected outcome: %q", got.Outcome)
	}
}
