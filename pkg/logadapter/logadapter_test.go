package logadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-graphcache"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) record(level, format string, arguments ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+" "+fmt.Sprintf(format, arguments...))
}

func (r *recorder) Debugf(format string, arguments ...interface{}) { r.record("debug", format, arguments...) }
func (r *recorder) Infof(format string, arguments ...interface{})  { r.record("info", format, arguments...) }
func (r *recorder) Warnf(format string, arguments ...interface{})  { r.record("warn", format, arguments...) }
func (r *recorder) Errorf(format string, arguments ...interface{}) { r.record("error", format, arguments...) }

func TestFormatOrdersFields(t *testing.T) {
	line := Format(graphcache.LogEvent{
		Message:  "fetch failed",
		Identity: "record:E1",
		PassID:   "p1",
		Duration: 2 * time.Millisecond,
		Fields:   map[string]any{"status": 503, "key": "record:E1|name"},
		Err:      errors.New("boom"),
	})
	want := `fetch failed identity=record:E1 pass=p1 duration=2ms key=record:E1|name status=503 error="boom"`
	if line != want {
		t.Fatalf("unexpected line\nwant %s\n got %s", want, line)
	}
}

func TestAdapterMapsLevels(t *testing.T) {
	rec := &recorder{}
	adapter := Wrap(rec)
	for _, level := range []graphcache.LogLevel{graphcache.LevelDebug, graphcache.LevelInfo, graphcache.LevelWarn, graphcache.LevelError} {
		adapter.LogEvent(graphcache.LogEvent{Level: level, Message: "m"})
	}
	want := []string{"debug m", "info m", "warn m", "error m"}
	if strings.Join(rec.lines, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected lines %v", rec.lines)
	}
}

func TestAdapterReceivesCacheEvents(t *testing.T) {
	rec := &recorder{}
	cache, err := graphcache.New(graphcache.WithLogger(Wrap(rec)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer cache.Close()

	if _, err := cache.Ingest(context.Background(), map[string]any{"id": "E1"}, nil, nil, time.Now()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.lines) == 0 || !strings.HasPrefix(rec.lines[len(rec.lines)-1], "debug ingestion pass committed") {
		t.Fatalf("expected pass log, got %v", rec.lines)
	}
}

func TestInitialiseWritesToDirectory(t *testing.T) {
	if err := Initialise(Config{Directory: t.TempDir(), Level: "debug"}); err != nil {
		t.Fatalf("initialise: %v", err)
	}
	defer Finalise()

	adapter := New("")
	adapter.LogEvent(graphcache.LogEvent{Level: graphcache.LevelInfo, Message: "started"})
}
