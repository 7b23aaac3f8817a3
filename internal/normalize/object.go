package normalize

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
)

// Alias chains, highest priority first. Paths are dotted object lookups.
var (
	promptPaths = []string{
		"prompt", "positive_prompt", "description",
		"v4_prompt.caption.base_caption",
		"Comment.prompt", "Comment.v4_prompt.caption.base_caption",
	}
	negativePaths = []string{
		"uc", "negative_prompt", "neg_prompt",
		"v4_negative_prompt.caption.base_caption",
		"Comment.uc", "Comment.negative_prompt",
		"Comment.v4_negative_prompt.caption.base_caption",
	}
	widthPaths    = []string{"width", "w", "image_w", "Comment.width"}
	heightPaths   = []string{"height", "h", "image_h", "Comment.height"}
	modelPaths    = []string{"model", "model_name", "sampler", "Software", "Source", "Comment.model", "Comment.sampler"}
	versionPaths  = []string{"version", "Comment.version"}
	samplerPaths  = []string{"sampler", "sampler_name", "Comment.sampler"}
	stepsPaths    = []string{"steps", "num_steps", "Comment.steps"}
	scalePaths    = []string{"scale", "cfg", "cfg_scale", "guidance_scale", "Comment.scale"}
	seedPaths     = []string{"seed", "noise_seed", "Comment.seed"}
	clipSkipPaths = []string{"clip_skip", "clipskip", "clipSkip", "Comment.clip_skip"}
)

type captionPath struct {
	list  string
	field string
}

var (
	charPromptPaths = []captionPath{
		{"v4_prompt.caption.char_captions", "char_caption"},
		{"Comment.v4_prompt.caption.char_captions", "char_caption"},
		{"char_captions", "char_caption"},
	}
	charNegativePaths = []captionPath{
		{"v4_negative_prompt.caption.char_captions", "char_caption"},
		{"Comment.v4_negative_prompt.caption.char_captions", "char_caption"},
		{"char_captions", "char_uc"},
	}
)

// Object resolves a decoded JSON object into a record using the alias
// chains. A nested "metadata" object is merged underneath the outer fields,
// and a "Comment" string holding a JSON object is treated as that object.
func Object(obj map[string]any) models.MetadataRecord {
	obj = prepare(obj)

	var r models.MetadataRecord
	r.Prompt = firstString(obj, promptPaths...)
	r.NegativePrompt = firstString(obj, negativePaths...)
	r.Width = firstInt(obj, widthPaths...)
	r.Height = firstInt(obj, heightPaths...)
	r.Model = firstString(obj, modelPaths...)
	if r.Model == "" {
		if v := firstString(obj, versionPaths...); v != "" {
			r.Model = "v" + v
		}
	}
	r.Sampler = firstString(obj, samplerPaths...)
	r.Steps = firstInt(obj, stepsPaths...)
	r.Scale = firstFloat(obj, scalePaths...)
	r.Seed = firstInt(obj, seedPaths...)
	r.ClipSkip = firstInt(obj, clipSkipPaths...)

	for i := range r.Characters {
		r.Characters[i].Prompt = firstCaption(obj, i, charPromptPaths)
		r.Characters[i].Negative = firstCaption(obj, i, charNegativePaths)
	}
	return r
}

func firstCaption(obj map[string]any, index int, paths []captionPath) string {
	for _, p := range paths {
		if s, ok := scalarString(elementField(obj, p.list, index, p.field)); ok {
			return s
		}
	}
	return ""
}

// prepare returns a shallow copy of obj with the nested metadata merged in
// and an embedded Comment document decoded. obj itself is not modified.
func prepare(obj map[string]any) map[string]any {
	merged := make(map[string]any, len(obj))
	if nested, ok := obj["metadata"].(map[string]any); ok {
		for k, v := range nested {
			merged[k] = v
		}
	}
	for k, v := range obj {
		merged[k] = v
	}

	if s, ok := merged["Comment"].(string); ok {
		if comment, ok := ParseObject(s); ok {
			merged["Comment"] = comment
		}
	}
	return merged
}

// ParseObject decodes text as a single JSON document and returns it as an
// object. A top-level array yields its first object element.
func ParseObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false // trailing data
	}

	switch v := doc.(type) {
	case map[string]any:
		return v, true
	case []any:
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}
