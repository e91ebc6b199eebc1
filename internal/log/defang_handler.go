package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces values under sensitive keys.
const MaskValue = "[REDACTED]"

// MaxValueLen is the longest string value logged unmodified.
const MaxValueLen = 256

const truncatedSuffix = "...(truncated)"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"proxy_auth":          true,
	"cookie":              true,
	"set-cookie":          true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"x-api-key":           true,
}

// sensitiveKeywords mask any key that contains them.
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "cookie", "credential"}

// sensitivePatterns mask values regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// urlPattern finds URLs; group 1 is the scheme, group 2 the host.
var urlPattern = regexp.MustCompile(`(?i)\b(https?|ftp)://([^/\s"'<>:?#]+)`)

// DefangHandler wraps an slog.Handler. It defangs URLs, masks sensitive
// values and truncates long values before passing records on.
type DefangHandler struct {
	handler slog.Handler
}

// NewDefangHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewDefangHandler(handler slog.Handler) *DefangHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &DefangHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *DefangHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *DefangHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, Defang(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *DefangHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = sanitizeAttr(a)
	}
	return &DefangHandler{handler: h.handler.WithAttrs(clean)}
}

// WithGroup implements slog.Handler.
func (h *DefangHandler) WithGroup(name string) slog.Handler {
	return &DefangHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			clean[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	var s string
	switch a.Value.Kind() {
	case slog.KindString:
		s = a.Value.String()
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			s = v.Error()
		case fmt.Stringer:
			s = v.String()
		default:
			return a
		}
	default:
		return a
	}

	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return slog.String(a.Key, MaskValue)
		}
	}
	return slog.String(a.Key, truncate(Defang(s)))
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if sensitiveKeys[k] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(k, kw) {
			return true
		}
	}
	return false
}

// Defang rewrites every URL in s: the scheme loses its "t"s (http becomes
// hxxp) and the dots of the host are bracketed.
func Defang(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return urlPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := urlPattern.FindStringSubmatch(m)
		scheme := strings.NewReplacer("t", "x", "T", "X").Replace(sub[1])
		host := strings.ReplaceAll(sub[2], ".", "[.]")
		return scheme + "://" + host
	})
}

func truncate(s string) string {
	if len(s) <= MaxValueLen {
		return s
	}
	cut := MaxValueLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + truncatedSuffix
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a text logger that defangs its output.
// verbose selects Debug level; otherwise Info.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(verbose)}
	return slog.New(NewDefangHandler(slog.NewTextHandler(w, opts)))
}

// NewJSONLogger creates a JSON logger that defangs its output.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(verbose)}
	return slog.New(NewDefangHandler(slog.NewJSONHandler(w, opts)))
}
