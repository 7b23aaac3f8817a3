// Package export writes resolved records as CSV, TSV, JSONL, YAML or Parquet
// and reads the JSONL and Parquet forms back.
package export

import "github.com/imagetoprompts/naimeta/internal/models"

// Row is one exported record. Unset numbers are nil so that every format
// can tell them apart from zero.
type Row struct {
	Filename       string         `json:"filename" parquet:"filename" yaml:"filename"`
	Width          *int64         `json:"image_w,omitempty" parquet:"image_w,optional" yaml:"image_w,omitempty"`
	Height         *int64         `json:"image_h,omitempty" parquet:"image_h,optional" yaml:"image_h,omitempty"`
	Model          string         `json:"model" parquet:"model" yaml:"model"`
	Prompt         string         `json:"base_prompt" parquet:"base_prompt" yaml:"base_prompt"`
	NegativePrompt string         `json:"uc" parquet:"uc" yaml:"uc"`
	Characters     []CharacterRow `json:"characters" parquet:"characters,list" yaml:"characters"`
	Sampler        string         `json:"sampler,omitempty" parquet:"sampler" yaml:"sampler,omitempty"`
	Steps          *int64         `json:"steps,omitempty" parquet:"steps,optional" yaml:"steps,omitempty"`
	Scale          *float64       `json:"scale,omitempty" parquet:"scale,optional" yaml:"scale,omitempty"`
	Seed           *int64         `json:"seed,omitempty" parquet:"seed,optional" yaml:"seed,omitempty"`
	ClipSkip       *int64         `json:"clip_skip,omitempty" parquet:"clip_skip,optional" yaml:"clip_skip,omitempty"`
	Source         string         `json:"source" parquet:"source" yaml:"source"`
	SourceTag      string         `json:"source_tag,omitempty" parquet:"source_tag" yaml:"source_tag,omitempty"`
}

// CharacterRow is one character slot
type CharacterRow struct {
	Prompt   string `json:"prompt" parquet:"prompt" yaml:"prompt"`
	Negative string `json:"uc" parquet:"uc" yaml:"uc"`
}

// NewRow flattens a record. source is the extraction method that produced it.
func NewRow(filename, source string, r models.MetadataRecord) Row {
	row := Row{
		Filename:       filename,
		Width:          r.Width.Ptr(),
		Height:         r.Height.Ptr(),
		Model:          r.Model,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Characters:     make([]CharacterRow, models.MaxCharacters),
		Sampler:        r.Sampler,
		Steps:          r.Steps.Ptr(),
		Scale:          r.Scale.Ptr(),
		Seed:           r.Seed.Ptr(),
		ClipSkip:       r.ClipSkip.Ptr(),
		Source:         source,
		SourceTag:      r.SourceTag,
	}
	for i, c := range r.Characters {
		row.Characters[i] = CharacterRow{Prompt: c.Prompt, Negative: c.Negative}
	}
	return row
}

// Record rebuilds the metadata record. Extra character slots are dropped.
func (row Row) Record() models.MetadataRecord {
	r := models.MetadataRecord{
		Prompt:         row.Prompt,
		NegativePrompt: row.NegativePrompt,
		Width:          intFromPtr(row.Width),
		Height:         intFromPtr(row.Height),
		Model:          row.Model,
		Sampler:        row.Sampler,
		Steps:          intFromPtr(row.Steps),
		Seed:           intFromPtr(row.Seed),
		ClipSkip:       intFromPtr(row.ClipSkip),
		SourceTag:      row.SourceTag,
	}
	if row.Scale != nil {
		r.Scale = models.Float(*row.Scale)
	}
	for i, c := range row.Characters {
		if i >= models.MaxCharacters {
			break
		}
		r.Characters[i] = models.Character{Prompt: c.Prompt, Negative: c.Negative}
	}
	return r
}

func intFromPtr(p *int64) models.OptionalInt {
	if p == nil {
		return models.OptionalInt{}
	}
	return models.Int(*p)
}
