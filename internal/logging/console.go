package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// leadingKeys are printed right after the message, in this order.
var leadingKeys = []string{FieldGroup, FieldPath, FieldRecordID, FieldMode}

// consoleHandler writes one human-readable line per record:
//
//	2026-01-02 15:04:05 INFO  association: markers bound group=/data/2630 count=2
//
// The session ID is only printed at debug level since every line of one
// invocation shares it.
type consoleHandler struct {
	mu         *sync.Mutex
	w          io.Writer
	level      *slog.LevelVar
	withSource bool
	attrs      []field
	prefix     string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level *slog.LevelVar, withSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, withSource: withSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]field, 0, len(h.attrs)+r.NumAttrs())
	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(time.DateTime))
	fmt.Fprintf(&b, " %-5s ", r.Level.String())

	var component string
	rest := fields[:0:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent:
			component = f.value.String()
		case f.key == FieldSessionID && h.level.Level() > slog.LevelDebug:
		default:
			rest = append(rest, f)
		}
	}
	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	b.WriteString(r.Message)
	if h.withSource && r.PC != 0 {
		if src := r.Source(); src != nil {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}

	for _, key := range leadingKeys {
		for _, f := range rest {
			if f.key == key {
				writeField(&b, f)
			}
		}
	}
	for _, f := range rest {
		if !isLeading(f.key) {
			writeField(&b, f)
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]field(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = appendAttr(clone.attrs, h.prefix, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = appendAttr(dst, inner, ga)
		}
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: a.Value})
}

func isLeading(key string) bool {
	for _, k := range leadingKeys {
		if k == key {
			return true
		}
	}
	return false
}

func writeField(b *strings.Builder, f field) {
	b.WriteByte(' ')
	b.WriteString(f.key)
	b.WriteByte('=')
	var s string
	if f.value.Kind() == slog.KindTime {
		s = f.value.Time().UTC().Format(time.RFC3339)
	} else {
		s = f.value.String()
	}
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		s = strconv.Quote(s)
	}
	b.WriteString(s)
}
