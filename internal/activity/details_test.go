package activity

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"flowdeck/internal/logging"
	"flowdeck/internal/types"
)

func TestBuildDetailsParsesPayloads(t *testing.T) {
	details := BuildDetails(types.ActivityRecord{
		ID:           "e1",
		ActivityName: "fetch",
		ActivityID:   "fetch#2",
		Inputs:       `{"url":"https://example.test","retries":2}`,
		Result:       `[1,2]`,
	}, nil)

	if !details.Inputs.Parsed || !details.Result.Parsed {
		t.Fatalf("expected both payloads to parse")
	}
	if details.ActivityKey != "fetch#2" {
		t.Fatalf("expected activity key from activity id, got %q", details.ActivityKey)
	}
	if !strings.Contains(details.Inputs.Pretty(), "\n  \"retries\": 2") {
		t.Fatalf("expected indented inputs, got %q", details.Inputs.Pretty())
	}
}

func TestBuildDetailsKeepsRawTextOnParseFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.Debug)
	details := BuildDetails(types.ActivityRecord{ID: "e1", ActivityName: "fetch", Result: "not json {"}, logger)

	if details.Result.Parsed {
		t.Fatalf("expected result to stay unparsed")
	}
	if details.Result.Pretty() != "not json {" {
		t.Fatalf("expected raw text, got %q", details.Result.Pretty())
	}
	if !details.Inputs.Empty() {
		t.Fatalf("expected empty inputs")
	}
	if !strings.Contains(buf.String(), "activity payload is not json") || !strings.Contains(buf.String(), "field=result") {
		t.Fatalf("expected parse warning, got %q", buf.String())
	}
}

func TestDetailsJSON(t *testing.T) {
	details := BuildDetails(types.ActivityRecord{
		ID:           "e1",
		ActivityName: "fetch",
		Inputs:       `{"a":1}`,
		Result:       "plain text",
	}, nil)
	text, err := details.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("expected valid json, got %v", err)
	}
	inputs, ok := decoded["inputs"].(map[string]any)
	if !ok || inputs["a"] != float64(1) {
		t.Fatalf("expected structured inputs, got %#v", decoded["inputs"])
	}
	if decoded["result"] != "plain text" {
		t.Fatalf("expected raw result string, got %#v", decoded["result"])
	}
}
