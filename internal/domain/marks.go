package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Marks is an optional score. The zero value is "not marked yet", which is
// distinct from a mark of 0.
type Marks struct {
	value float64
	set   bool
}

// MarksOf returns a set Marks holding v.
func MarksOf(v float64) Marks {
	return Marks{value: v, set: true}
}

// Value returns the mark and whether one has been assigned.
func (m Marks) Value() (float64, bool) {
	return m.value, m.set
}

// IsSet reports whether a judge has assigned marks.
func (m Marks) IsSet() bool { return m.set }

func (m Marks) MarshalJSON() ([]byte, error) {
	if !m.set {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

func (m *Marks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Marks{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = MarksOf(v)
	return nil
}

// ParseMarks coerces a raw JSON value into a mark. Numbers and numeric
// strings are accepted; null, empty, and non-finite values are rejected.
func ParseMarks(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, Invalid("marks", "is required")
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, Invalid("marks", "must be a number")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, Invalid("marks", "is required")
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, Invalid("marks", "must be a number")
		}
		v = parsed
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, Invalid("marks", "must be a number")
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, Invalid("marks", "must be finite")
	}
	return v, nil
}

// MarksPolicy bounds acceptable marks. Nil bounds are open.
type MarksPolicy struct {
	Min *float64
	Max *float64
}

// Check returns a ValidationError if v falls outside the policy.
func (p MarksPolicy) Check(v float64) error {
	if p.Min != nil && v < *p.Min {
		return Invalid("marks", "must be at least "+strconv.FormatFloat(*p.Min, 'f', -1, 64))
	}
	if p.Max != nil && v > *p.Max {
		return Invalid("marks", "must be at most "+strconv.FormatFloat(*p.Max, 'f', -1, 64))
	}
	return nil
}
