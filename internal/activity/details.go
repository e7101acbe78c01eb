package activity

import (
	"bytes"
	"encoding/json"
	"strings"

	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

// Payload is a serialized inputs or result value. Value is set only when Raw
// held valid JSON.
type Payload struct {
	Raw    string
	Value  any
	Parsed bool
}

// Pretty returns indented JSON when the payload parsed, otherwise the raw
// text unchanged.
func (p Payload) Pretty() string {
	if !p.Parsed {
		return p.Raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(p.Raw)), "", "  "); err != nil {
		return p.Raw
	}
	return buf.String()
}

func (p Payload) Empty() bool {
	return strings.TrimSpace(p.Raw) == ""
}

type Details struct {
	ID           string
	ActivityName string
	ActivityKey  string
	StartedTime  string
	EndedTime    string
	Inputs       Payload
	Result       Payload
}

// BuildDetails decodes the serialized payloads of record. A payload that is
// not valid JSON is logged and kept as raw text.
func BuildDetails(record types.ActivityRecord, logger logging.Logger) Details {
	logger = logging.OrNop(logger)
	return Details{
		ID:           record.ID,
		ActivityName: record.ActivityName,
		ActivityKey:  record.Key(),
		StartedTime:  record.StartedTime,
		EndedTime:    record.EndedTime,
		Inputs:       parsePayload(record.ID, "inputs", record.Inputs, logger),
		Result:       parsePayload(record.ID, "result", record.Result, logger),
	}
}

func parsePayload(id, field, raw string, logger logging.Logger) Payload {
	payload := Payload{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return payload
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		logger.Warn("activity payload is not json", logging.F("id", id), logging.F("field", field), logging.Err(err))
		return payload
	}
	payload.Value = value
	payload.Parsed = true
	return payload
}

type detailsDocument struct {
	ID           string `json:"id"`
	ActivityName string `json:"activityName"`
	ActivityKey  string `json:"activityKey,omitempty"`
	StartedTime  string `json:"startedTime,omitempty"`
	EndedTime    string `json:"endedTime,omitempty"`
	Inputs       any    `json:"inputs,omitempty"`
	Result       any    `json:"result,omitempty"`
}

// JSON renders the details as an indented document for copying.
func (d Details) JSON() (string, error) {
	doc := detailsDocument{
		ID:           d.ID,
		ActivityName: d.ActivityName,
		ActivityKey:  d.ActivityKey,
		StartedTime:  d.StartedTime,
		EndedTime:    d.EndedTime,
		Inputs:       payloadValue(d.Inputs),
		Result:       payloadValue(d.Result),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func payloadValue(p Payload) any {
	if p.Parsed {
		return p.Value
	}
	if p.Empty() {
		return nil
	}
	return p.Raw
}
