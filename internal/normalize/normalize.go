// Package normalize turns metadata text of unknown shape into a canonical
// record. Text is tried as JSON, then as key/value lines, then searched with
// patterns; text that matches nothing becomes the prompt verbatim. None of
// the entry points fail.
package normalize

import (
	"sort"
	"strconv"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
)

// Strategy names the parsing approach that produced a record
type Strategy string

const (
	StrategyJSON     Strategy = "json"
	StrategyKeyValue Strategy = "key-value"
	StrategyPattern  Strategy = "pattern-text"
	StrategyVerbatim Strategy = "verbatim"
)

// Result is a normalized record plus the strategy that produced it
type Result struct {
	Record   models.MetadataRecord
	Strategy Strategy
}

// Text normalizes a metadata blob
func Text(text string) Result {
	if obj, ok := ParseObject(text); ok {
		r := Object(obj)
		r.SourceTag = string(StrategyJSON)
		return Result{Record: r, Strategy: StrategyJSON}
	}

	if strings.ContainsAny(text, ":=") {
		if r, ok := keyValue(text); ok {
			r.SourceTag = string(StrategyKeyValue)
			return Result{Record: r, Strategy: StrategyKeyValue}
		}
	}

	return patternText(text)
}

// Properties maps host file properties onto a record. Keys are matched by
// substring with no further parsing of the values: "negative"/"uc" before
// "prompt", then "model". Character keys (char1_prompt, character2_uc) fill
// their slot. Keys are visited in sorted order and the first non-empty value
// for a field is kept.
func Properties(props map[string]string) models.MetadataRecord {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var r models.MetadataRecord
	setOnce := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}

	for _, k := range keys {
		v := strings.TrimSpace(props[k])
		if v == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(k))

		if m := charKeyRe.FindStringSubmatch(key); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > models.MaxCharacters {
				continue
			}
			if m[2] == "uc" {
				setOnce(&r.Characters[n-1].Negative, v)
			} else {
				setOnce(&r.Characters[n-1].Prompt, v)
			}
			continue
		}

		switch {
		case strings.Contains(key, "negative"), strings.Contains(key, "uc"):
			setOnce(&r.NegativePrompt, v)
		case strings.Contains(key, "prompt"):
			setOnce(&r.Prompt, v)
		case strings.Contains(key, "model"):
			setOnce(&r.Model, v)
		}
	}
	return r
}
