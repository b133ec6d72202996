package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/loglattice/orchestrator/sse"
)

// writeJSONModeResult implements §4.6.6: once the Speaker has ended, parse
// the accumulated text as JSON (tolerant of a fenced code block) and emit a
// single chunk with the stringified result, or a structured error chunk on
// parse failure.
func writeJSONModeResult(w *sse.Writer, raw string) error {
	var parsed any
	body := stripFence(raw)
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		errBody, _ := json.Marshal(map[string]string{"error": "Failed to parse as JSON", "content": raw})
		return w.WriteDelta(0, sse.Delta{Content: string(errBody)}, "")
	}

	normalized, err := json.Marshal(parsed)
	if err != nil {
		errBody, _ := json.Marshal(map[string]string{"error": "Failed to parse as JSON", "content": raw})
		return w.WriteDelta(0, sse.Delta{Content: string(errBody)}, "")
	}
	return w.WriteDelta(0, sse.Delta{Content: string(normalized)}, "")
}

// stripFence removes a single leading/trailing markdown code fence, with or
// without a language tag.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
