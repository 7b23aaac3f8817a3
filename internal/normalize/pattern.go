package normalize

import (
	"regexp"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
)

var (
	patPromptRe   = regexp.MustCompile(`(?im)\b(?:prompt|positive)\s*:\s*(.+)$`)
	patNegativeRe = regexp.MustCompile(`(?im)\b(?:uc|negative(?:\s+prompt)?|neg)\s*:\s*(.+)$`)
	patDimsRe     = regexp.MustCompile(`(\d{2,5})\s*[xX×]\s*(\d{2,5})`)
	patModelRe    = regexp.MustCompile(`(?im)\b(?:model|using)\s*:\s*([^\n,]+)`)
	patSamplerRe  = regexp.MustCompile(`(?im)\bsampler\s*:\s*([^\n,]+)`)
	patStepsRe    = regexp.MustCompile(`(?i)\bsteps\s*:\s*(\d+)`)
	patScaleRe    = regexp.MustCompile(`(?i)\b(?:scale|cfg)\s*:\s*([\d.]+)`)
	patSeedRe     = regexp.MustCompile(`(?i)\bseed\s*:\s*(\d+)`)
)

// patternText runs independent searches over free text. When neither a
// prompt nor a negative prompt is found the whole text is the prompt.
func patternText(text string) Result {
	var r models.MetadataRecord

	r.Prompt = positivePrompt(text)
	r.NegativePrompt = submatch(patNegativeRe, text)
	if m := patDimsRe.FindStringSubmatch(text); m != nil {
		r.Width = models.ParseInt(m[1])
		r.Height = models.ParseInt(m[2])
	}
	r.Model = submatch(patModelRe, text)
	r.Sampler = submatch(patSamplerRe, text)
	r.Steps = models.ParseInt(submatch(patStepsRe, text))
	r.Scale = models.ParseFloat(strings.Trim(submatch(patScaleRe, text), "."))
	r.Seed = models.ParseInt(submatch(patSeedRe, text))

	if r.Prompt == "" && r.NegativePrompt == "" {
		r.Prompt = text
		r.SourceTag = string(StrategyVerbatim)
		return Result{Record: r, Strategy: StrategyVerbatim}
	}
	r.SourceTag = string(StrategyPattern)
	return Result{Record: r, Strategy: StrategyPattern}
}

// positivePrompt skips "prompt:" matches that belong to "negative prompt:"
func positivePrompt(text string) string {
	for _, loc := range patPromptRe.FindAllStringSubmatchIndex(text, -1) {
		before := strings.ToLower(strings.TrimRight(text[:loc[0]], " \t"))
		if strings.HasSuffix(before, "negative") || strings.HasSuffix(before, "neg") {
			continue
		}
		return strings.TrimSpace(text[loc[2]:loc[3]])
	}
	return ""
}

func submatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
