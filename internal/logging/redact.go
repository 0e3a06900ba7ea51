package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redaction replaces the value of every redacted field.
const Redaction = "***"

// PIIFields are the attribute keys masked by the server logger.
var PIIFields = []string{
	"email", "password", "authorization", "session_id",
	"reset_token", "first_name", "last_name", "ip",
}

// MessageSeparator delimits key=value pairs inside log messages.
const MessageSeparator = ";"

// NewRedactor returns a slog ReplaceAttr hook that masks the values of
// attributes whose key matches one of fields (case-insensitive). Group
// attributes are walked by slog itself, so nested keys are covered too.
// The message itself is passed through FilterDatum with MessageSeparator.
func NewRedactor(fields []string) func(groups []string, a slog.Attr) slog.Attr {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	filterMessage := datumFilter(fields, Redaction, MessageSeparator)
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.MessageKey {
			return slog.String(a.Key, filterMessage(a.Value.String()))
		}
		if _, ok := set[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, Redaction)
		}
		return a
	}
}

// FilterDatum masks "field=value" pairs inside a free-form message where
// pairs are delimited by separator, e.g.
//
//	FilterDatum([]string{"password"}, "***", "name=bob;password=x;", ";")
//	// "name=bob;password=***;"
func FilterDatum(fields []string, redaction, message, separator string) string {
	return datumFilter(fields, redaction, separator)(message)
}

// datumFilter compiles the FilterDatum pattern once for repeated use.
func datumFilter(fields []string, redaction, separator string) func(string) string {
	if len(fields) == 0 || separator == "" {
		return func(message string) string { return message }
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	sep := regexp.QuoteMeta(separator)
	re := regexp.MustCompile(`(^|` + sep + `)(\s*)(` + strings.Join(quoted, "|") + `)=[^` + sepClass(separator) + `]*`)
	repl := "${1}${2}${3}=" + strings.ReplaceAll(redaction, "$", "$$")
	return func(message string) string {
		return re.ReplaceAllString(message, repl)
	}
}

// sepClass escapes the separator for use inside a character class.
func sepClass(separator string) string {
	var b strings.Builder
	for _, r := range separator {
		switch r {
		case '\\', ']', '^', '-', '[':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
