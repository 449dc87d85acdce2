package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// StorageLayout is how every time is persisted. Fixed width, so string
	// comparison in SQL orders the same way as the instants themselves.
	StorageLayout = "2006-01-02 15:04:05"
	// WireLayout is the format trading-platform clients send and expect.
	WireLayout = "2006.01.02 15:04:05"
)

// Timestamp is a UTC time truncated to the second. The zero value means absent
// and is stored as NULL and encoded as JSON null.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalizes t to UTC with second precision.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

// ParseWire parses the platform format "YYYY.MM.DD HH:MM:SS" as UTC.
func ParseWire(s string) (Timestamp, error) {
	t, err := time.ParseInLocation(WireLayout, s, time.UTC)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid time %q, want YYYY.MM.DD HH:MM:SS: %w", s, err)
	}
	return Timestamp{Time: t}, nil
}

// Valid reports whether the timestamp holds a value.
func (t Timestamp) Valid() bool { return !t.IsZero() }

// Storage formats the timestamp the way it is persisted.
func (t Timestamp) Storage() string { return t.UTC().Format(StorageLayout) }

// Wire formats the timestamp the way clients expect it.
func (t Timestamp) Wire() string { return t.UTC().Format(WireLayout) }

// Before reports whether t is strictly earlier than u at second precision.
func (t Timestamp) Before(u Timestamp) bool { return t.Time.Before(u.Time) }

func (t Timestamp) String() string {
	if !t.Valid() {
		return "<none>"
	}
	return t.Wire()
}

// GormDataType keeps the column textual in every dialect.
func (Timestamp) GormDataType() string { return "string" }

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, nil
	}
	return t.Storage(), nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Timestamp{}
		return nil
	case string:
		return t.parseStorage(v)
	case []byte:
		return t.parseStorage(string(v))
	case time.Time:
		*t = NewTimestamp(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", src)
	}
}

func (t *Timestamp) parseStorage(s string) error {
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := time.ParseInLocation(StorageLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON encodes the wire format, or null when absent.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Wire())
}

// UnmarshalJSON accepts the wire format, an empty string, or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseWire(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
