package models

import "time"

// StoredRecord is an extraction kept by the HTTP server
type StoredRecord struct {
	ID               string            `json:"id"`
	Filename         string            `json:"filename"`
	Record           MetadataRecord    `json:"record"`
	ExtractionMethod string            `json:"extraction_method"`
	Fields           map[string]Source `json:"fields"`
	Stealth          bool              `json:"stealth"`
	CreatedAt        time.Time         `json:"created_at"`
}
