package types

import "strings"

// ActivityRecord is one completed step of a workflow run as delivered by the
// activity feed. Records are immutable once received; Inputs and Result hold
// serialized JSON text and are only decoded when an operator opens details.
type ActivityRecord struct {
	ID           string `json:"id"`
	ActivityName string `json:"activityName"`
	ActivityID   string `json:"activityId,omitempty"`
	StartedTime  string `json:"startedTime,omitempty"`
	EndedTime    string `json:"endedTime,omitempty"`
	Inputs       string `json:"inputs,omitempty"`
	Result       string `json:"result,omitempty"`
}

// Key identifies the activity for knowledge and instruction lookups.
func (r ActivityRecord) Key() string {
	if key := strings.TrimSpace(r.ActivityID); key != "" {
		return key
	}
	return strings.TrimSpace(r.ActivityName)
}

// ActivityHandler receives feed callbacks. Opened fires once the connection
// is established, Record once per parsed record.
type ActivityHandler struct {
	Opened func()
	Record func(ActivityRecord)
}

func (h ActivityHandler) NotifyOpened() {
	if h.Opened != nil {
		h.Opened()
	}
}

func (h ActivityHandler) Deliver(record ActivityRecord) {
	if h.Record != nil {
		h.Record(record)
	}
}
