// Package extract runs the full metadata pipeline for one image: it gathers
// candidates from the PNG chunks, the stealth marker, the IHDR header and the
// host supplied description and properties, then resolves them into a record.
package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/imagetoprompts/naimeta/internal/models"
	"github.com/imagetoprompts/naimeta/internal/normalize"
	"github.com/imagetoprompts/naimeta/internal/pngchunk"
	"github.com/imagetoprompts/naimeta/internal/resolve"
	"github.com/imagetoprompts/naimeta/internal/stealth"
)

// Input is everything known about one image
type Input struct {
	Bytes       []byte
	Filename    string
	Description string
	Properties  map[string]string
	// ExternalDecode is the metadata object returned by the alpha decoder
	ExternalDecode map[string]any
	Extra          []models.Candidate
}

// Result is the resolved record plus diagnostics
type Result struct {
	Record           models.MetadataRecord    `json:"record"`
	ExtractionMethod string                   `json:"extraction_method"`
	Fields           map[string]models.Source `json:"fields"`
	TextChunks       []models.TextKV          `json:"text_chunks,omitempty"`
	RawJSON          string                   `json:"raw_json,omitempty"`
	Stealth          bool                     `json:"stealth"`
}

// Chunk keywords whose plain text is worth normalizing
var textKeys = map[string]bool{
	"comment":     true,
	"description": true,
	"parameters":  true,
	"prompt":      true,
	"usercomment": true,
}

// Extract resolves the input without any network access
func Extract(in Input) Result {
	var res Result
	cands := candidates(in, &res)
	resolution := resolve.Resolve(cands, in.Filename)

	res.Record = resolution.Record
	res.Fields = resolution.Fields
	res.ExtractionMethod = resolution.Method
	return res
}

func candidates(in Input, res *Result) []models.Candidate {
	var cands []models.Candidate

	if in.ExternalDecode != nil {
		r := normalize.Object(in.ExternalDecode)
		r.SourceTag = string(normalize.StrategyJSON)
		cands = append(cands, models.Candidate{Source: models.SourceExternalDecode, Record: r})
	}

	if isPNGName(in.Filename) && pngchunk.HasSignature(in.Bytes) {
		res.TextChunks = pngchunk.Decode(in.Bytes)
		cands = append(cands, chunkCandidates(res.TextChunks, &res.RawJSON)...)

		if stealth.Scan(in.Bytes) {
			res.Stealth = true
			cands = append(cands, models.Candidate{
				Source: models.SourceStealthDetected,
				Record: models.MetadataRecord{Model: stealth.ModelSentinel},
			})
		}

		if w, h, ok := pngchunk.Dimensions(in.Bytes); ok {
			cands = append(cands, models.Candidate{
				Source: models.SourcePNGHeader,
				Record: models.MetadataRecord{Width: models.Int(w), Height: models.Int(h)},
			})
		}
	}

	if len(in.Properties) > 0 {
		r := normalize.Properties(in.Properties)
		if !r.IsEmpty() {
			cands = append(cands, models.Candidate{Source: models.SourceDriveProperties, Record: r})
		}
	}

	if strings.TrimSpace(in.Description) != "" {
		n := normalize.Text(in.Description)
		cands = append(cands, models.Candidate{Source: models.SourceDriveDescription, Record: n.Record})
	}

	cands = append(cands, in.Extra...)

	slog.Debug("Collected candidates",
		"filename", in.Filename,
		"candidates", len(cands),
		"chunks", len(res.TextChunks),
		"stealth", res.Stealth)
	return cands
}

// chunkCandidates merges every text chunk into one map, overlaying the fields
// of chunks that hold JSON objects, and resolves it as a png-chunk-json
// candidate. Plain text chunks under well known keywords are normalized on
// their own as png-chunk-text candidates.
func chunkCandidates(chunks []models.TextKV, rawJSON *string) []models.Candidate {
	var cands []models.Candidate

	merged := make(map[string]any, len(chunks))
	seen := make(map[string]bool, len(chunks))
	var texts []models.TextKV
	foundJSON := false

	for _, kv := range chunks {
		if seen[kv.Key] {
			continue
		}
		seen[kv.Key] = true

		obj, ok := normalize.ParseObject(kv.Value)
		if !ok {
			if _, taken := merged[kv.Key]; !taken {
				merged[kv.Key] = kv.Value
			}
			texts = append(texts, kv)
			continue
		}

		if !foundJSON {
			*rawJSON = strings.TrimSpace(kv.Value)
		}
		foundJSON = true
		merged[kv.Key] = obj
		for k, v := range obj {
			merged[k] = v
		}
	}

	// Source and Software name the generator more reliably than the
	// sampler-based fallback inside the JSON document
	software := normalize.FirstNonEmpty(chunkValue(chunks, "Source"), chunkValue(chunks, "Software"))

	if foundJSON {
		r := normalize.Object(merged)
		r.Model = normalize.FirstNonEmpty(software, r.Model)
		r.SourceTag = string(normalize.StrategyJSON)
		cands = append(cands, models.Candidate{Source: models.SourcePNGChunkJSON, Record: r})
	}

	for _, kv := range texts {
		if !textKeys[strings.ToLower(kv.Key)] || strings.TrimSpace(kv.Value) == "" {
			continue
		}
		n := normalize.Text(kv.Value)
		cands = append(cands, models.Candidate{Source: models.SourcePNGChunkText, Record: n.Record})
	}

	if software != "" {
		cands = append(cands, models.Candidate{
			Source: models.SourcePNGChunkText,
			Record: models.MetadataRecord{Model: software},
		})
	}
	return cands
}

func chunkValue(chunks []models.TextKV, key string) string {
	for _, kv := range chunks {
		if strings.EqualFold(kv.Key, key) {
			return kv.Value
		}
	}
	return ""
}

// isPNGName accepts names ending in .png and names without an extension
func isPNGName(name string) bool {
	ext := filepath.Ext(name)
	return ext == "" || strings.EqualFold(ext, ".png")
}

// AlphaDecoder reads metadata hidden in the alpha channel
type AlphaDecoder interface {
	Decode(ctx context.Context, image []byte, filename string) (map[string]any, error)
}

// Captioner describes an image with a vision LLM
type Captioner interface {
	Caption(ctx context.Context, image []byte, provider, model string) (string, error)
}

// Service adds the optional network sources to Extract. A nil Alpha or
// Captions disables that source.
type Service struct {
	Alpha           AlphaDecoder
	Captions        Captioner
	CaptionProvider string
	CaptionModel    string
	Timeout         time.Duration
}

// Process extracts one image. The alpha decoder is only consulted when the
// file itself carries no prompt, and a caption only when nothing else did.
// Failures of either are logged and the file proceeds without them.
func (s *Service) Process(ctx context.Context, in Input) Result {
	res := Extract(in)

	if s.Alpha != nil && in.ExternalDecode == nil && res.Record.Prompt == "" && pngchunk.HasSignature(in.Bytes) {
		meta, err := s.decodeAlpha(ctx, in)
		if err != nil {
			slog.Warn("Alpha channel decode failed", "filename", in.Filename, "error", err)
		} else if meta != nil {
			in.ExternalDecode = meta
			res = Extract(in)
		}
	}

	if s.Captions != nil && s.CaptionProvider != "" && res.Record.Prompt == "" && len(in.Bytes) > 0 {
		caption, err := s.caption(ctx, in)
		if err != nil {
			slog.Warn("Caption failed", "filename", in.Filename, "provider", s.CaptionProvider, "error", err)
		} else if caption != "" {
			in.Extra = append(append([]models.Candidate(nil), in.Extra...), models.Candidate{
				Source: models.SourceLLMCaption,
				Record: models.MetadataRecord{Prompt: caption},
			})
			res = Extract(in)
		}
	}

	return res
}

func (s *Service) decodeAlpha(ctx context.Context, in Input) (map[string]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Alpha.Decode(ctx, in.Bytes, filepath.Base(in.Filename))
}

func (s *Service) caption(ctx context.Context, in Input) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.Captions.Caption(ctx, in.Bytes, s.CaptionProvider, s.CaptionModel)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return context.WithTimeout(ctx, timeout)
}
