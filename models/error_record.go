package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the operator workflow state of an error record.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusFixed      Status = "fixed"
	StatusIgnored    Status = "ignored"
)

// StatusOrder is the workflow order used when sorting by status.
var StatusOrder = []Status{StatusNew, StatusInProgress, StatusFixed, StatusIgnored}

// Rank returns the position of s in StatusOrder. An empty status ranks as
// StatusNew. ok is false for statuses outside the known workflow.
func (s Status) Rank() (rank int, ok bool) {
	if s == "" {
		s = StatusNew
	}
	for i, known := range StatusOrder {
		if s == known {
			return i, true
		}
	}
	return len(StatusOrder), false
}

// Known field names of an error record as they appear on the wire.
const (
	FieldID        = "id"
	FieldType      = "type"
	FieldMessage   = "message"
	FieldTimestamp = "timestamp"
	FieldStatus    = "status"
	FieldComment   = "comment"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// ErrorRecord is one captured client error.
//
// Fields the store does not interpret (source, lineno, colno, stack, ...) are
// kept in Extra as raw JSON and written back unchanged. So are timestamp,
// createdAt and updatedAt values that do not decode into their typed slot.
type ErrorRecord struct {
	ID        string
	Type      string
	Message   string
	Timestamp string
	Status    Status
	Comment   string
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Extra     map[string]json.RawMessage
}

// ApplyDefaults fills in values that are implied when absent.
func (r *ErrorRecord) ApplyDefaults() {
	if r.Status == "" {
		r.Status = StatusNew
	}
}

// ClearRaw drops undecoded values of the named known fields.
func (r *ErrorRecord) ClearRaw(names ...string) {
	for _, name := range names {
		delete(r.Extra, name)
	}
}

// KeepIdentity copies id and createdAt from stored, including a createdAt
// value stored in undecoded form, and drops any undecoded id or updatedAt.
func (r *ErrorRecord) KeepIdentity(stored ErrorRecord) {
	r.ClearRaw(FieldID, FieldCreatedAt, FieldUpdatedAt)
	r.ID = stored.ID
	r.CreatedAt = nil
	if stored.CreatedAt != nil {
		t := *stored.CreatedAt
		r.CreatedAt = &t
	} else if raw, ok := stored.Extra[FieldCreatedAt]; ok {
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[FieldCreatedAt] = append(json.RawMessage(nil), raw...)
	}
}

// HasMessage reports whether the record carries a non-blank message.
func (r ErrorRecord) HasMessage() bool {
	return strings.TrimSpace(r.Message) != ""
}

// Clone returns a deep copy so callers can mutate it without touching r.
func (r ErrorRecord) Clone() ErrorRecord {
	out := r
	if r.CreatedAt != nil {
		t := *r.CreatedAt
		out.CreatedAt = &t
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		out.UpdatedAt = &t
	}
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// SetExtra stores a pass-through field. Known field names are rejected.
func (r *ErrorRecord) SetExtra(key string, value any) error {
	if isKnownField(key) {
		return fmt.Errorf("%q is not a pass-through field", key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", key, err)
	}
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = raw
	return nil
}

// Field returns the value of a named field for ordering purposes. Known
// string fields yield string, createdAt/updatedAt yield time.Time and
// pass-through fields are decoded from JSON (string, float64, bool, ...).
// ok is false when the field is absent.
func (r ErrorRecord) Field(name string) (value any, ok bool) {
	switch name {
	case FieldID:
		return r.ID, r.ID != ""
	case FieldType:
		return r.Type, r.Type != ""
	case FieldMessage:
		return r.Message, r.Message != ""
	case FieldStatus:
		return string(r.Status), r.Status != ""
	case FieldComment:
		return r.Comment, r.Comment != ""
	case FieldTimestamp:
		if r.Timestamp != "" {
			return r.Timestamp, true
		}
	case FieldCreatedAt:
		if r.CreatedAt != nil {
			return *r.CreatedAt, true
		}
	case FieldUpdatedAt:
		if r.UpdatedAt != nil {
			return *r.UpdatedAt, true
		}
	}

	raw, exists := r.Extra[name]
	if !exists {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// EffectiveTime is the moment used to order records in time: the producer's
// timestamp when it parses, otherwise createdAt, otherwise the Unix epoch.
func (r ErrorRecord) EffectiveTime() time.Time {
	if t, ok := ParseTimestamp(r.Timestamp); ok {
		return t
	}
	if r.CreatedAt != nil {
		return *r.CreatedAt
	}
	return time.Unix(0, 0).UTC()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats producers are known to send.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtraKeys returns the pass-through field names in sorted order.
func (r ErrorRecord) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if !isKnownField(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON writes known fields first, in a fixed order, followed by the
// pass-through fields sorted by name.
func (r ErrorRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	writeRaw := func(key string, raw []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	write := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", key, err)
		}
		writeRaw(key, raw)
		return nil
	}

	if r.ID != "" {
		if err := write(FieldID, r.ID); err != nil {
			return nil, err
		}
	}
	if r.Type != "" {
		if err := write(FieldType, r.Type); err != nil {
			return nil, err
		}
	}
	if err := write(FieldMessage, r.Message); err != nil {
		return nil, err
	}
	if r.Timestamp != "" {
		if err := write(FieldTimestamp, r.Timestamp); err != nil {
			return nil, err
		}
	} else if raw, ok := r.Extra[FieldTimestamp]; ok {
		writeRaw(FieldTimestamp, raw)
	}
	if r.Status != "" {
		if err := write(FieldStatus, r.Status); err != nil {
			return nil, err
		}
	}
	if r.Comment != "" {
		if err := write(FieldComment, r.Comment); err != nil {
			return nil, err
		}
	}
	if r.CreatedAt != nil {
		if err := write(FieldCreatedAt, r.CreatedAt.UTC()); err != nil {
			return nil, err
		}
	} else if raw, ok := r.Extra[FieldCreatedAt]; ok {
		writeRaw(FieldCreatedAt, raw)
	}
	if r.UpdatedAt != nil {
		if err := write(FieldUpdatedAt, r.UpdatedAt.UTC()); err != nil {
			return nil, err
		}
	} else if raw, ok := r.Extra[FieldUpdatedAt]; ok {
		writeRaw(FieldUpdatedAt, raw)
	}

	for _, k := range r.ExtraKeys() {
		raw := r.Extra[k]
		if !json.Valid(raw) {
			return nil, fmt.Errorf("field %q holds invalid JSON", k)
		}
		writeRaw(k, raw)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON object. Known fields are decoded into their
// typed slots; null counts as absent; everything else lands in Extra.
// A numeric id is taken as its decimal text and an id of any other kind is
// dropped. Timestamp, createdAt and updatedAt values that are not usable
// times are kept raw in Extra.
func (r *ErrorRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("error record must be a JSON object")
	}

	out := ErrorRecord{}
	keepRaw := func(key string, raw json.RawMessage) {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = append(json.RawMessage(nil), raw...)
	}
	for key, raw := range fields {
		var err error
		switch key {
		case FieldID:
			out.ID = decodeID(raw)
		case FieldType:
			err = decodeString(raw, &out.Type)
		case FieldMessage:
			err = decodeString(raw, &out.Message)
		case FieldTimestamp:
			if decodeString(raw, &out.Timestamp) != nil {
				keepRaw(key, raw)
			}
		case FieldComment:
			err = decodeString(raw, &out.Comment)
		case FieldStatus:
			var s string
			err = decodeString(raw, &s)
			out.Status = Status(s)
		case FieldCreatedAt:
			var valid bool
			if out.CreatedAt, valid = decodeTime(raw); !valid {
				keepRaw(key, raw)
			}
		case FieldUpdatedAt:
			var valid bool
			if out.UpdatedAt, valid = decodeTime(raw); !valid {
				keepRaw(key, raw)
			}
		default:
			keepRaw(key, raw)
		}
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}

	*r = out
	return nil
}

func decodeString(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeTime reports valid=false for a value that is neither absent nor a
// parsable time string.
func decodeTime(raw json.RawMessage) (t *time.Time, valid bool) {
	if isNull(raw) {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	if s == "" {
		return nil, true
	}
	parsed, ok := ParseTimestamp(s)
	if !ok {
		return nil, false
	}
	return &parsed, true
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func isKnownField(name string) bool {
	switch name {
	case FieldID, FieldType, FieldMessage, FieldTimestamp, FieldStatus, FieldComment, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}
