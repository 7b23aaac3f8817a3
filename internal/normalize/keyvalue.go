package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
)

var (
	kvLineRe  = regexp.MustCompile(`^\s*([^:=]+?)\s*[:=]\s*(.*?)\s*$`)
	kvKeyRe   = regexp.MustCompile(`^\s*([^:=,]+?)\s*[:=]`)
	charKeyRe = regexp.MustCompile(`(?i)^char(?:acter)?(\d+)_(prompt|uc)$`)
	numberRe  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	dimPairRe = regexp.MustCompile(`(\d+)\s*[xX×*]\s*(\d+)`)

	// "Denoising strength: 0.5", "Hires upscaler: Latent"
	settingKeyRe = regexp.MustCompile(`^\s*[A-Za-z][A-Za-z0-9 _-]{0,39}:\s`)
)

type field int

const (
	fieldNone field = iota
	fieldNegative
	fieldPrompt
	fieldClipSkip
	fieldDimensions
	fieldWidth
	fieldHeight
	fieldModel
	fieldSampler
	fieldSteps
	fieldScale
	fieldSeed
)

// Checked in order; the first family with an alias contained in the key
// wins. Negative comes before prompt so "negative prompt" is not a prompt.
var aliasFamilies = []struct {
	field   field
	aliases []string
}{
	{fieldNegative, []string{"negative", "neg", "uc"}},
	{fieldPrompt, []string{"prompt", "positive"}},
	{fieldClipSkip, []string{"clip skip", "clip_skip", "clipskip"}},
	{fieldDimensions, []string{"size", "dimension", "resolution"}},
	{fieldWidth, []string{"width"}},
	{fieldHeight, []string{"height"}},
	{fieldModel, []string{"model", "software"}},
	{fieldSampler, []string{"sampler"}},
	{fieldSteps, []string{"steps", "step"}},
	{fieldScale, []string{"scale", "cfg", "guidance"}},
	{fieldSeed, []string{"seed"}},
}

func familyOf(key string) field {
	for _, fam := range aliasFamilies {
		for _, alias := range fam.aliases {
			if strings.Contains(key, alias) {
				return fam.field
			}
		}
	}
	return fieldNone
}

func knownKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return charKeyRe.MatchString(key) || familyOf(key) != fieldNone
}

// keyValue reads "key: value" / "key=value" lines. Later lines overwrite
// earlier ones. ok is false when nothing was assigned.
//
// A line may also hold several comma separated pairs, as in
// "Steps: 28, Sampler: Euler, Seed: 1". Inside such a line keys are matched
// by their trailing words ("CFG scale" is a scale, "Hires upscale" and
// "Model hash" are nothing) and the first value for a field wins, so
// "Hires steps" cannot replace "Steps".
//
// Lines before the first assignment are the prompt when no prompt key is
// present, which is how "parameters" chunks are laid out.
func keyValue(text string) (r models.MetadataRecord, ok bool) {
	var leading []string
	for _, line := range strings.Split(text, "\n") {
		segs := segments(line)
		compound := len(segs) > 1
		taken := make(map[string]bool)

		assigned := false
		for _, seg := range segs {
			m := kvLineRe.FindStringSubmatch(seg)
			if m == nil {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(m[1]))

			f := familyOf(key)
			if compound {
				f = trailingFamilyOf(key)
			}
			slot := slotOf(key, f)
			if slot == "" || taken[slot] {
				continue
			}
			if assign(&r, key, f, m[2]) {
				assigned = true
				if compound {
					taken[slot] = true
				}
			}
		}
		if assigned {
			ok = true
		} else if !ok {
			leading = append(leading, line)
		}
	}
	if ok && r.Prompt == "" {
		r.Prompt = strings.TrimSpace(strings.Join(leading, "\n"))
	}
	return r, ok
}

// slotOf names the record field a key writes, or "" for unknown keys
func slotOf(key string, f field) string {
	if charKeyRe.MatchString(key) {
		return key
	}
	if f == fieldNone {
		return ""
	}
	return strconv.Itoa(int(f))
}

// trailingFamilyOf matches aliases against the last words of the key. The
// negative family may appear anywhere, so "negative prompt" stays negative.
func trailingFamilyOf(key string) field {
	words := keyWords(key)
	for _, fam := range aliasFamilies {
		for _, alias := range fam.aliases {
			a := keyWords(alias)
			if fam.field == fieldNegative {
				if strings.Contains(" "+words+" ", " "+a+" ") {
					return fam.field
				}
				continue
			}
			if words == a || strings.HasSuffix(words, " "+a) {
				return fam.field
			}
		}
	}
	return fieldNone
}

func keyWords(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " ")
}

// segments splits a line into pairs. A comma starts a new pair when the text
// after it begins with a known key, or with a "Words: value" key written the
// way generators list their settings. Prompts such as "1girl, artist:foo"
// stay whole.
func segments(line string) []string {
	parts := strings.Split(line, ",")
	segs := []string{parts[0]}
	for _, p := range parts[1:] {
		if startsPair(p) {
			segs = append(segs, p)
			continue
		}
		segs[len(segs)-1] += "," + p
	}
	return segs
}

func startsPair(s string) bool {
	if settingKeyRe.MatchString(s) {
		return true
	}
	m := kvKeyRe.FindStringSubmatch(s)
	return m != nil && knownKey(m[1])
}

func assign(r *models.MetadataRecord, key string, f field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	if m := charKeyRe.FindStringSubmatch(key); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > models.MaxCharacters {
			return false
		}
		if strings.EqualFold(m[2], "uc") {
			r.Characters[n-1].Negative = value
		} else {
			r.Characters[n-1].Prompt = value
		}
		return true
	}

	switch f {
	case fieldNegative:
		r.NegativePrompt = value
	case fieldPrompt:
		r.Prompt = value
	case fieldModel:
		r.Model = value
	case fieldSampler:
		r.Sampler = value
	case fieldDimensions:
		m := dimPairRe.FindStringSubmatch(value)
		if m == nil {
			return false
		}
		r.Width = models.ParseInt(m[1])
		r.Height = models.ParseInt(m[2])
	case fieldWidth:
		return setInt(&r.Width, value)
	case fieldHeight:
		return setInt(&r.Height, value)
	case fieldSteps:
		return setInt(&r.Steps, value)
	case fieldSeed:
		return setInt(&r.Seed, value)
	case fieldClipSkip:
		return setInt(&r.ClipSkip, value)
	case fieldScale:
		v := models.ParseFloat(numberRe.FindString(value))
		if !v.Valid {
			return false
		}
		r.Scale = v
	default:
		return false
	}
	return true
}

// setInt takes the integer part of the leading number in value
func setInt(dst *models.OptionalInt, value string) bool {
	num := numberRe.FindString(value)
	if i := strings.IndexByte(num, '.'); i >= 0 {
		num = num[:i]
	}
	v := models.ParseInt(num)
	if !v.Valid {
		return false
	}
	*dst = v
	return true
}
