// Package resolve merges candidate records from every metadata source into
// one record. Candidates are folded in source priority order and each field
// takes the first non-empty value offered for it.
package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/imagetoprompts/naimeta/internal/models"
	"github.com/imagetoprompts/naimeta/internal/normalize"
	"github.com/imagetoprompts/naimeta/internal/stealth"
)

// ModelNovelAI is the model assumed for files named like NovelAI downloads
const ModelNovelAI = "NovelAI"

// Resolution is the merged record and, per field, the source it came from.
// Field names match the record's JSON names; character slots are
// char1_prompt, char1_uc and so on. Method names the source that supplied
// the prompt, or the highest ranked contributing source when there is none.
type Resolution struct {
	Record models.MetadataRecord
	Fields map[string]models.Source
	Method string
}

// Resolve folds the candidates into one record. The candidates slice is not
// modified and the result depends only on the arguments.
func Resolve(candidates []models.Candidate, filename string) Resolution {
	ordered := make([]models.Candidate, len(candidates), len(candidates)+1)
	copy(ordered, candidates)
	if IsUUIDFilename(filename) {
		ordered = append(ordered, models.Candidate{
			Source: models.SourceFilenameHeuristic,
			Record: models.MetadataRecord{Model: ModelNovelAI},
		})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Source < ordered[j].Source
	})

	f := folder{fields: make(map[string]models.Source)}
	for _, c := range ordered {
		if c.Source == models.SourceStealthDetected && f.rec.Prompt != "" {
			continue
		}
		f.add(c)
	}

	if f.fields["model"] == models.SourceStealthDetected &&
		f.rec.Model == stealth.ModelSentinel && IsUUIDFilename(filename) {
		f.rec.Model = stealth.ModelNovelAISentinel
	}

	// the record's tag is the parsing strategy of the winning candidate,
	// falling back to its source name
	rec := finalize(f.rec)
	var method string
	switch {
	case f.promptFrom != nil:
		method = f.promptFrom.Source.String()
		rec.SourceTag = normalize.FirstNonEmpty(f.promptFrom.Record.SourceTag, method)
	case f.top != nil:
		method = f.top.Source.String()
		rec.SourceTag = normalize.FirstNonEmpty(f.top.Record.SourceTag, method)
	}
	return Resolution{Record: rec, Fields: f.fields, Method: method}
}

// IsUUIDFilename reports whether the base name is a UUID followed by .png,
// the naming NovelAI uses for downloaded images.
func IsUUIDFilename(name string) bool {
	base := filepath.Base(strings.TrimSpace(name))
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".png") {
		return false
	}
	stem := strings.TrimSuffix(base, ext)
	if len(stem) != 36 {
		return false
	}
	_, err := uuid.Parse(stem)
	return err == nil
}

type folder struct {
	rec        models.MetadataRecord
	fields     map[string]models.Source
	cur        *models.Candidate
	top        *models.Candidate
	promptFrom *models.Candidate
}

func (f *folder) add(c models.Candidate) {
	f.cur = &c
	r := c.Record
	if f.rec.Prompt == "" && strings.TrimSpace(r.Prompt) != "" {
		f.promptFrom = &c
	}
	f.str("prompt", &f.rec.Prompt, r.Prompt, c.Source)
	f.str("negative_prompt", &f.rec.NegativePrompt, r.NegativePrompt, c.Source)
	f.num("width", &f.rec.Width, r.Width, c.Source)
	f.num("height", &f.rec.Height, r.Height, c.Source)
	f.str("model", &f.rec.Model, r.Model, c.Source)
	f.str("sampler", &f.rec.Sampler, r.Sampler, c.Source)
	f.num("steps", &f.rec.Steps, r.Steps, c.Source)
	if !f.rec.Scale.Valid && r.Scale.Valid {
		f.rec.Scale = r.Scale
		f.mark("scale", c.Source)
	}
	f.num("seed", &f.rec.Seed, r.Seed, c.Source)
	f.num("clip_skip", &f.rec.ClipSkip, r.ClipSkip, c.Source)

	for i := range f.rec.Characters {
		dst, src := &f.rec.Characters[i], r.Characters[i]
		f.str(fmt.Sprintf("char%d_prompt", i+1), &dst.Prompt, src.Prompt, c.Source)
		f.str(fmt.Sprintf("char%d_uc", i+1), &dst.Negative, src.Negative, c.Source)
	}
}

func (f *folder) str(name string, dst *string, v string, src models.Source) {
	if strings.TrimSpace(*dst) != "" || strings.TrimSpace(v) == "" {
		return
	}
	*dst = v
	f.mark(name, src)
}

func (f *folder) num(name string, dst *models.OptionalInt, v models.OptionalInt, src models.Source) {
	if dst.Valid || !v.Valid {
		return
	}
	*dst = v
	f.mark(name, src)
}

func (f *folder) mark(name string, src models.Source) {
	f.fields[name] = src
	if f.top == nil {
		f.top = f.cur
	}
}

// finalize trims every text field
func finalize(r models.MetadataRecord) models.MetadataRecord {
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.NegativePrompt = strings.TrimSpace(r.NegativePrompt)
	r.Model = strings.TrimSpace(r.Model)
	r.Sampler = strings.TrimSpace(r.Sampler)
	for i := range r.Characters {
		r.Characters[i].Prompt = strings.TrimSpace(r.Characters[i].Prompt)
		r.Characters[i].Negative = strings.TrimSpace(r.Characters[i].Negative)
	}
	r.SourceTag = ""
	return r
}
