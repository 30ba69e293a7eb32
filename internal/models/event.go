// Package models defines the event and batch types shared by the
// forwarder and the dashboard.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UnknownKey is the aggregation key used when an event lacks the
// field being counted.
const UnknownKey = "unknown"

// Event is one record from the sensor log. The raw JSON is preserved
// verbatim for forwarding; aggregation fields are extracted on demand.
type Event struct {
	Raw json.RawMessage
}

// ParseEvent validates a single log line as a JSON object and wraps it.
// Non-object JSON values (arrays, numbers, strings) are rejected: the
// sensor emits one object per line and aggregation keys come from
// object fields.
func ParseEvent(line []byte) (Event, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Event{}, fmt.Errorf("empty event")
	}
	if trimmed[0] != '{' {
		return Event{}, fmt.Errorf("event is not a JSON object")
	}
	if !json.Valid(trimmed) {
		return Event{}, fmt.Errorf("invalid JSON")
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return Event{Raw: raw}, nil
}

// MarshalJSON forwards the raw record unchanged.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

// UnmarshalJSON captures the raw record unchanged.
func (e *Event) UnmarshalJSON(data []byte) error {
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	e.Raw = raw
	return nil
}

// Fields is the small derived view of an event used for aggregation
// and display. Missing fields default to "unknown" (or empty for the
// purely informational ones).
type Fields struct {
	Timestamp string
	EventType string
	SourceIP  string
	DestIP    string
	Signature string
}

// eveRecord mirrors the handful of EVE fields we extract. Suricata
// emits src_ip/dest_ip for IPv4 and src_ipv6/dest_ipv6 for IPv6.
type eveRecord struct {
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	SrcIP     string `json:"src_ip"`
	SrcIPv6   string `json:"src_ipv6"`
	DestIP    string `json:"dest_ip"`
	DestIPv6  string `json:"dest_ipv6"`
	Alert     *struct {
		Signature string `json:"signature"`
	} `json:"alert"`
}

// Fields extracts the aggregation view from the raw record.
func (e Event) Fields() Fields {
	var rec eveRecord
	// The raw value was validated at parse time; a failure here means
	// a type mismatch on one of the extracted fields, which we treat
	// the same as the field being absent.
	_ = json.Unmarshal(e.Raw, &rec)

	f := Fields{
		Timestamp: rec.Timestamp,
		EventType: rec.EventType,
		SourceIP:  rec.SrcIP,
		DestIP:    rec.DestIP,
	}
	if f.SourceIP == "" {
		f.SourceIP = rec.SrcIPv6
	}
	if f.DestIP == "" {
		f.DestIP = rec.DestIPv6
	}
	if rec.Alert != nil {
		f.Signature = rec.Alert.Signature
	}

	if f.EventType == "" {
		f.EventType = UnknownKey
	}
	if f.SourceIP == "" {
		f.SourceIP = UnknownKey
	}
	if f.DestIP == "" {
		f.DestIP = UnknownKey
	}
	return f
}

// HasAlert reports whether the event carries an alert block.
func (e Event) HasAlert() bool {
	var rec eveRecord
	_ = json.Unmarshal(e.Raw, &rec)
	return rec.Alert != nil
}

// Batch is a bounded ordered group of events forwarded in one
// delivery attempt. It is immutable once handed to the dispatcher.
type Batch struct {
	ID     string
	Events []Event
}

// NewBatch wraps events in a batch with a fresh ID.
func NewBatch(events []Event) Batch {
	return Batch{
		ID:     uuid.New().String(),
		Events: events,
	}
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b.Events)
}
