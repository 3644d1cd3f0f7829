package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const clockLayout = "15:04"

// Interval is an opening interval within one day, both ends as HH:MM.
type Interval struct {
	Opens  string `json:"opens"`
	Closes string `json:"closes"`
}

// Validate checks that both ends parse as 24-hour clock times.
func (iv Interval) Validate() error {
	if _, err := time.Parse(clockLayout, iv.Opens); err != nil {
		return fmt.Errorf("invalid opening time %q", iv.Opens)
	}
	if _, err := time.Parse(clockLayout, iv.Closes); err != nil {
		return fmt.Errorf("invalid closing time %q", iv.Closes)
	}
	return nil
}

// UnmarshalJSON accepts either {"opens":"11:00","closes":"22:00"} or the
// compact "11:00-22:00" form.
func (iv *Interval) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		opens, closes, ok := strings.Cut(s, "-")
		if !ok {
			return fmt.Errorf("invalid interval %q", s)
		}
		iv.Opens = strings.TrimSpace(opens)
		iv.Closes = strings.TrimSpace(closes)
		return nil
	}
	type plain Interval
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*iv = Interval(p)
	return nil
}

// OperatingHours maps a lower-case English weekday name to the interval the
// restaurant is open that day. A weekday missing from the map means closed.
type OperatingHours map[string]Interval

// UnmarshalJSON folds weekday keys to lower case, so "Monday" and
// "monday" name the same day.
func (h *OperatingHours) UnmarshalJSON(b []byte) error {
	var raw map[string]Interval
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(OperatingHours, len(raw))
	for day, iv := range raw {
		out[strings.ToLower(strings.TrimSpace(day))] = iv
	}
	*h = out
	return nil
}

// DefaultOperatingHours is used for restaurants that arrive without hours.
func DefaultOperatingHours() OperatingHours {
	return OperatingHours{
		"monday":    {Opens: "11:00", Closes: "22:00"},
		"tuesday":   {Opens: "11:00", Closes: "22:00"},
		"wednesday": {Opens: "11:00", Closes: "22:00"},
		"thursday":  {Opens: "11:00", Closes: "22:00"},
		"friday":    {Opens: "11:00", Closes: "23:00"},
		"saturday":  {Opens: "11:00", Closes: "23:00"},
		"sunday":    {Opens: "11:00", Closes: "22:00"},
	}
}

// Validate rejects unknown weekday keys and malformed intervals.
func (h OperatingHours) Validate() error {
	for day, iv := range h {
		if _, ok := weekdays[day]; !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if err := iv.Validate(); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	return nil
}

// OpenOn reports whether the restaurant lists hours for the given weekday.
// Restaurants with no hours at all are treated as always open.
func (h OperatingHours) OpenOn(d time.Weekday) bool {
	if len(h) == 0 {
		return true
	}
	_, ok := h[strings.ToLower(d.String())]
	return ok
}

// Value stores the hours as a JSON document.
func (h OperatingHours) Value() (driver.Value, error) {
	if h == nil {
		return "{}", nil
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(map[string]Interval(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads the JSON document written by Value.
func (h *OperatingHours) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*h = OperatingHours{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("operating hours: unsupported type %T", src)
	}
	out := OperatingHours{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return fmt.Errorf("operating hours: %w", err)
		}
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("operating hours: %w", err)
	}
	*h = out
	return nil
}

var weekdays = map[string]struct{}{
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
}
