package render

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
)

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape makes s safe to place in HTML text content or a quoted attribute.
func Escape(s string) string {
	return htmlReplacer.Replace(s)
}

// Stringify returns strings unchanged and everything else as two-space
// indented JSON.
func Stringify(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case json.RawMessage:
		return pipeline.Indent(value)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// EscapeValue stringifies v and escapes the result.
func EscapeValue(v interface{}) string {
	return Escape(Stringify(v))
}

// StageDump is the JSON shown on a stage card: output, else error, else the
// whole stage.
func StageDump(stage pipeline.Stage) string {
	switch {
	case stage.Output != nil:
		return pipeline.Indent(stage.Output)
	case stage.Error != nil:
		return pipeline.Indent(stage.Error)
	default:
		return pipeline.Indent(stage.Raw)
	}
}
