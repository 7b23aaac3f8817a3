package providers

import (
	"context"
)

// Config represents one image captioning request to a vision LLM
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MIMEType    string
}

// Provider defines the interface for a vision LLM provider
type Provider interface {
	DescribeImage(ctx context.Context, config Config) (string, error)
}
