// Package logger renders slog records as single colored lines for a terminal.
package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	purple = "\033[35m"
	cyan   = "\033[36m"
	gray   = "\033[37m"
	white  = "\033[97m"
)

const redacted = "[redacted]"

// sensitiveKeys are attribute keys whose values never reach the output.
var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"access":        {},
	"access_token":  {},
	"refresh":       {},
	"refresh_token": {},
	"password":      {},
}

type Options struct {
	Level slog.Leveler
	// Color enables ANSI escapes. UseColor picks a sensible default.
	Color bool
}

// UseColor reports whether f looks like a terminal and NO_COLOR is unset.
func UseColor(f *os.File) bool {
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

type PrettyHandler struct {
	level slog.Leveler
	color bool
	w     io.Writer
	mu    *sync.Mutex

	// preformatted holds attrs added through WithAttrs, already rendered.
	preformatted []byte
	group        string
}

func NewPrettyHandler(w io.Writer, opts Options) *PrettyHandler {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &PrettyHandler{
		level: level,
		color: opts.Color,
		w:     w,
		mu:    &sync.Mutex{},
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !r.Time.IsZero() {
		buf.WriteString(h.paint(gray, r.Time.Format("15:04:05.000")))
		buf.WriteByte(' ')
	}
	buf.WriteString(h.paint(levelColor(r.Level), fmt.Sprintf("%-5s", r.Level.String())))
	buf.WriteByte(' ')
	buf.WriteString(h.paint(white, r.Message))
	buf.Write(h.preformatted)

	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return red
	case level >= slog.LevelWarn:
		return yellow
	case level >= slog.LevelInfo:
		return green
	default:
		return purple
	}
}

func (h *PrettyHandler) paint(color string, s string) string {
	if !h.color {
		return s
	}
	return color + s + reset
}

func (h *PrettyHandler) appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		if key == "" {
			key = prefix
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(buf, key, ga)
		}
		return
	}

	fmt.Fprintf(buf, " %s=%s", h.paint(cyan, key), formatValue(a))
}

func formatValue(a slog.Attr) string {
	if _, sensitive := sensitiveKeys[strings.ToLower(a.Key)]; sensitive {
		return redacted
	}

	var s string
	switch a.Value.Kind() {
	case slog.KindTime:
		s = a.Value.Time().Format(time.RFC3339)
	case slog.KindDuration:
		s = a.Value.Duration().String()
	default:
		s = fmt.Sprint(a.Value.Any())
	}

	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	var buf bytes.Buffer
	buf.Write(h.preformatted)
	for _, a := range attrs {
		h.appendAttr(&buf, h.group, a)
	}

	clone := *h
	clone.preformatted = buf.Bytes()
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}
