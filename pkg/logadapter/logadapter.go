// Package logadapter routes graphcache log events into github.com/bitmark-inc/logger.
package logadapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bitmark-inc/logger"
	"github.com/goliatone/go-graphcache"
)

// DefaultTag is the logger channel used by New when tag is empty.
const DefaultTag = "graphcache"

// Printer is the subset of *logger.L the adapter writes to.
type Printer interface {
	Debugf(format string, arguments ...interface{})
	Infof(format string, arguments ...interface{})
	Warnf(format string, arguments ...interface{})
	Errorf(format string, arguments ...interface{})
}

// Config mirrors the rotating file settings of logger.Configuration.
type Config struct {
	Directory string
	File      string
	Size      int
	Count     int
	Console   bool
	// Level is applied to every tag, e.g. "info" or "debug".
	Level string
}

// Initialise starts the global logger. Call Finalise on shutdown.
func Initialise(cfg Config) error {
	if cfg.File == "" {
		cfg.File = DefaultTag + ".log"
	}
	if cfg.Size <= 0 {
		cfg.Size = 1048576
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return logger.Initialise(logger.Configuration{
		Directory: cfg.Directory,
		File:      cfg.File,
		Size:      cfg.Size,
		Count:     cfg.Count,
		Console:   cfg.Console,
		Levels: map[string]string{
			logger.DefaultTag: cfg.Level,
		},
	})
}

// Finalise flushes and closes the global logger.
func Finalise() {
	logger.Finalise()
}

// Adapter implements graphcache.Logger.
type Adapter struct {
	out Printer
}

// New returns an Adapter writing to the logger channel tag. Initialise must
// have been called.
func New(tag string) *Adapter {
	if strings.TrimSpace(tag) == "" {
		tag = DefaultTag
	}
	return &Adapter{out: logger.New(tag)}
}

// Wrap adapts an existing printer, typically a *logger.L.
func Wrap(out Printer) *Adapter {
	return &Adapter{out: out}
}

func (a *Adapter) LogEvent(event graphcache.LogEvent) {
	if a == nil || a.out == nil {
		return
	}
	line := Format(event)
	switch event.Level {
	case graphcache.LevelDebug:
		a.out.Debugf("%s", line)
	case graphcache.LevelInfo:
		a.out.Infof("%s", line)
	case graphcache.LevelWarn:
		a.out.Warnf("%s", line)
	default:
		a.out.Errorf("%s", line)
	}
}

// Format renders event as one line: the message followed by key=value pairs
// in a stable order.
func Format(event graphcache.LogEvent) string {
	var b strings.Builder
	b.WriteString(event.Message)
	if event.Identity != "" {
		fmt.Fprintf(&b, " identity=%s", event.Identity)
	}
	if event.PassID != "" {
		fmt.Fprintf(&b, " pass=%s", event.PassID)
	}
	if event.Duration > 0 {
		fmt.Fprintf(&b, " duration=%s", event.Duration)
	}
	keys := make([]string, 0, len(event.Fields))
	for key := range event.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, event.Fields[key])
	}
	if event.Err != nil {
		fmt.Fprintf(&b, " error=%q", event.Err.Error())
	}
	return b.String()
}

var _ graphcache.Logger = (*Adapter)(nil)
