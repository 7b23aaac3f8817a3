package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxCharacters is the number of per-character caption slots in a record
const MaxCharacters = 6

// MetadataRecord is the canonical generation metadata for one image.
// Every field has a usable zero value: strings are "", optional numbers are
// unset, and Characters always has exactly MaxCharacters slots.
type MetadataRecord struct {
	Prompt         string                   `json:"prompt"`
	NegativePrompt string                   `json:"negative_prompt"`
	Width          OptionalInt              `json:"width"`
	Height         OptionalInt              `json:"height"`
	Model          string                   `json:"model"`
	Sampler        string                   `json:"sampler"`
	Steps          OptionalInt              `json:"steps"`
	Scale          OptionalFloat            `json:"scale"`
	Seed           OptionalInt              `json:"seed"`
	ClipSkip       OptionalInt              `json:"clip_skip"`
	Characters     [MaxCharacters]Character `json:"characters"`
	SourceTag      string                   `json:"source_tag"`
}

// Character holds the prompt and negative prompt for one character slot
type Character struct {
	Prompt   string `json:"prompt"`
	Negative string `json:"negative"`
}

// IsEmpty reports whether no metadata field carries a value
func (r MetadataRecord) IsEmpty() bool {
	if r.Prompt != "" || r.NegativePrompt != "" || r.Model != "" || r.Sampler != "" {
		return false
	}
	if r.Width.Valid || r.Height.Valid || r.Steps.Valid || r.Scale.Valid || r.Seed.Valid || r.ClipSkip.Valid {
		return false
	}
	for _, c := range r.Characters {
		if c.Prompt != "" || c.Negative != "" {
			return false
		}
	}
	return true
}

// TextKV is a keyword/text pair decoded from a PNG text chunk
type TextKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OptionalInt is an integer that may be unset. Unset values encode as "".
type OptionalInt struct {
	Value int64
	Valid bool
}

// Int returns a set OptionalInt
func Int(v int64) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// ParseInt parses a decimal integer, tolerating surrounding whitespace and an
// integral float form such as "28.0". Anything else yields an unset value.
func ParseInt(s string) OptionalInt {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptionalInt{}
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(v)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) &&
		f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	return OptionalInt{}
}

func (o OptionalInt) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatInt(o.Value, 10)
}

// Ptr returns nil when unset
func (o OptionalInt) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func (o OptionalInt) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte(`""`), nil
	}
	return []byte(o.String()), nil
}

func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	s, err := scalarText(data)
	if err != nil {
		return err
	}
	*o = ParseInt(s)
	if s != "" && !o.Valid {
		return fmt.Errorf("invalid integer %s", data)
	}
	return nil
}

// OptionalFloat is a decimal that may be unset. Unset values encode as "".
type OptionalFloat struct {
	Value float64
	Valid bool
}

// Float returns a set OptionalFloat
func Float(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Valid: true}
}

// ParseFloat parses a decimal number; anything else, including NaN and the
// infinities, yields an unset value
func ParseFloat(s string) OptionalFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptionalFloat{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return OptionalFloat{}
	}
	return Float(v)
}

// JSON has no encoding for NaN or the infinities
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (o OptionalFloat) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

// Ptr returns nil when unset
func (o OptionalFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte(`""`), nil
	}
	return []byte(o.String()), nil
}

func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	s, err := scalarText(data)
	if err != nil {
		return err
	}
	*o = ParseFloat(s)
	if s != "" && !o.Valid {
		return fmt.Errorf("invalid number %s", data)
	}
	return nil
}

// scalarText accepts a JSON number, string or null and returns its text
func scalarText(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(data), nil
}
