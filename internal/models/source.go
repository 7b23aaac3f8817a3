package models

import "fmt"

// Source identifies where a candidate record came from. The declaration order
// is the merge priority: lower values win.
type Source int

const (
	SourceExternalDecode Source = iota
	SourcePNGChunkJSON
	SourcePNGChunkText
	SourceDriveProperties
	SourceDriveDescription
	SourceStealthDetected
	SourcePNGHeader
	SourceFilenameHeuristic
	SourceLLMCaption
)

var sourceNames = map[Source]string{
	SourceExternalDecode:    "external-decode",
	SourcePNGChunkJSON:      "png-chunk-json",
	SourcePNGChunkText:      "png-chunk-text",
	SourceDriveProperties:   "drive-properties",
	SourceDriveDescription:  "drive-description",
	SourceStealthDetected:   "stealth-detected",
	SourcePNGHeader:         "png-header",
	SourceFilenameHeuristic: "filename-heuristic",
	SourceLLMCaption:        "llm-caption",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets Source appear as its name in JSON maps and documents
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names written by MarshalText
func (s *Source) UnmarshalText(text []byte) error {
	for src, name := range sourceNames {
		if name == string(text) {
			*s = src
			return nil
		}
	}
	return fmt.Errorf("unknown source %q", text)
}

// Candidate is one source's proposal for the final record
type Candidate struct {
	Source Source
	Record MetadataRecord
}
