package pipeline

import (
	"bytes"
	"encoding/json"
)

// Request is the envelope posted to the pipeline.
type Request struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Response is the pipeline's reply. The text fields are kept raw because
// the backend does not always send strings; use Final and Failure to read them.
type Response struct {
	FinalResponse  json.RawMessage `json:"final_response,omitempty"`
	ErrorMessage   json.RawMessage `json:"error_message,omitempty"`
	PipelineStages []Stage         `json:"pipeline_stages,omitempty"`
}

// Stage is one named step's recorded output or error.
type Stage struct {
	Agent  string
	Output json.RawMessage
	Error  json.RawMessage
	// Raw is the stage exactly as received.
	Raw json.RawMessage
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var aux struct {
		FinalResponse  json.RawMessage `json:"final_response"`
		ErrorMessage   json.RawMessage `json:"error_message"`
		PipelineStages json.RawMessage `json:"pipeline_stages"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.FinalResponse = present(aux.FinalResponse)
	r.ErrorMessage = present(aux.ErrorMessage)
	r.PipelineStages = nil

	// Anything other than an array is treated as no stages.
	stages := bytes.TrimSpace(aux.PipelineStages)
	if len(stages) > 0 && stages[0] == '[' {
		if err := json.Unmarshal(stages, &r.PipelineStages); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage) UnmarshalJSON(data []byte) error {
	s.Raw = append(json.RawMessage(nil), data...)
	s.Agent, s.Output, s.Error = "", nil, nil

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an object: keep only Raw, it gets dumped as-is.
		return nil
	}

	if agent, ok := fields["agent"]; ok {
		if err := json.Unmarshal(agent, &s.Agent); err != nil {
			s.Agent = string(bytes.TrimSpace(agent))
		}
	}
	s.Output = present(fields["output"])
	s.Error = present(fields["error"])
	return nil
}

func (s Stage) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	out := map[string]json.RawMessage{}
	agent, err := json.Marshal(s.Agent)
	if err != nil {
		return nil, err
	}
	out["agent"] = agent
	if s.Output != nil {
		out["output"] = s.Output
	}
	if s.Error != nil {
		out["error"] = s.Error
	}
	return json.Marshal(out)
}

// Final returns final_response as display text, and whether it should be shown.
func (r *Response) Final() (string, bool) {
	return displayText(r.FinalResponse)
}

// Failure returns error_message as display text, and whether it should be shown.
func (r *Response) Failure() (string, bool) {
	return displayText(r.ErrorMessage)
}

// present drops absent and null values.
func present(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

// truthy mirrors the usual "has a value" test: empty strings, false and zero do not count.
func truthy(raw json.RawMessage) bool {
	raw = present(raw)
	if raw == nil {
		return false
	}
	switch string(raw) {
	case `""`, "false", "0", "0.0", "-0":
		return false
	}
	return true
}

// displayText returns strings unquoted and anything else as indented JSON.
func displayText(raw json.RawMessage) (string, bool) {
	if !truthy(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return Indent(raw), true
}

// Indent pretty-prints raw JSON with a two-space indent, preserving key order.
func Indent(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
