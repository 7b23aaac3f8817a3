package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSONL   Format = "jsonl"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatJSONL, FormatYAML, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: csv, tsv, jsonl, yaml, parquet)", s)
	}
}

// Binary reports whether the format must not be written to a terminal
func (f Format) Binary() bool {
	return f == FormatParquet
}

// RawEntry is the embedded JSON document found in one file
type RawEntry struct {
	Filename string
	JSON     string
}

// RunConfig describes the extraction run in YAML exports
type RunConfig struct {
	Inputs          []string `yaml:"inputs"`
	Alpha           bool     `yaml:"alpha"`
	CaptionProvider string   `yaml:"captionprovider,omitempty"`
	CaptionModel    string   `yaml:"captionmodel,omitempty"`
	Timestamp       string   `yaml:"timestamp"`
}

// Document is the YAML export layout
type Document struct {
	Config  RunConfig `yaml:"config"`
	Records []Row     `yaml:"records"`
}

// CSVHeader lists the CSV columns in order
func CSVHeader() []string {
	header := []string{"filename", "image_w", "image_h", "model", "base_prompt", "UC"}
	for i := 1; i <= models.MaxCharacters; i++ {
		header = append(header, fmt.Sprintf("char%d_prompt", i), fmt.Sprintf("char%d_UC", i))
	}
	return append(header, "sampler", "steps", "scale", "seed", "clip_skip", "source")
}

// WriteCSV writes one line per row under CSVHeader
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(CSVHeader()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Filename,
			formatInt(row.Width),
			formatInt(row.Height),
			row.Model,
			row.Prompt,
			row.NegativePrompt,
		}
		for i := 0; i < models.MaxCharacters; i++ {
			var c CharacterRow
			if i < len(row.Characters) {
				c = row.Characters[i]
			}
			record = append(record, c.Prompt, c.Negative)
		}
		record = append(record,
			row.Sampler,
			formatInt(row.Steps),
			formatFloat(row.Scale),
			formatInt(row.Seed),
			formatInt(row.ClipSkip),
			row.Source,
		)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", row.Filename, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteRawTSV writes "filename<TAB>json" lines. Documents are compacted onto
// one line; entries without JSON are skipped.
func WriteRawTSV(w io.Writer, entries []RawEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.JSON) == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", tsvField(e.Filename), compactJSON(e.JSON)); err != nil {
			return fmt.Errorf("failed to write TSV row for %s: %w", e.Filename, err)
		}
	}
	return nil
}

// WriteJSONL writes one JSON object per line
func WriteJSONL(w io.Writer, rows []Row) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row for %s: %w", row.Filename, err)
		}
	}
	return nil
}

// WriteYAML writes the run config followed by the records
func WriteYAML(w io.Writer, cfg RunConfig, rows []Row) error {
	doc := Document{Config: cfg, Records: rows}
	if doc.Records == nil {
		doc.Records = []Row{}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return encoder.Close()
}

// WriteParquet writes the rows as a single Parquet file
func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func formatInt(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func formatFloat(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err == nil {
		return buf.String()
	}
	return tsvField(s)
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
