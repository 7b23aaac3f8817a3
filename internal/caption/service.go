// Package caption produces a prompt-style description of an image with a
// vision LLM. It is the lowest priority metadata source and only fills the
// prompt when nothing embedded in the file did.
package caption

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/imagetoprompts/naimeta/internal/gemini"
	"github.com/imagetoprompts/naimeta/internal/ollama"
	"github.com/imagetoprompts/naimeta/internal/openai"
	"github.com/imagetoprompts/naimeta/internal/providers"
)

// Service routes caption requests to a configured provider
type Service struct {
	providers map[string]providers.Provider
}

// NewService creates a caption service with the built-in providers
func NewService() *Service {
	return &Service{
		providers: map[string]providers.Provider{
			"gemini": gemini.New(),
			"ollama": ollama.New(),
			"openai": openai.New(),
		},
	}
}

// WithProvider registers or replaces a provider under name
func (s *Service) WithProvider(name string, p providers.Provider) *Service {
	s.providers[name] = p
	return s
}

// DefaultProvider returns CAPTION_PROVIDER, or "" when captioning is off
func DefaultProvider() string {
	return strings.TrimSpace(os.Getenv("CAPTION_PROVIDER"))
}

// Caption describes the image as a comma separated tag prompt
func (s *Service) Caption(ctx context.Context, image []byte, provider, model string) (string, error) {
	if provider == "" {
		provider = DefaultProvider()
	}
	if provider == "" {
		return "", fmt.Errorf("no caption provider configured")
	}

	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unsupported caption provider: %s", provider)
	}

	if model == "" {
		model = s.getDefaultModel(provider)
	}

	raw, err := p.DescribeImage(ctx, providers.Config{
		Model:       model,
		Temperature: 0.1,
		Prompt:      buildCaptionPrompt(),
		Image:       image,
		MIMEType:    http.DetectContentType(image),
	})
	if err != nil {
		return "", fmt.Errorf("failed to caption image: %w", err)
	}

	caption := cleanCaption(raw)
	slog.Debug("Generated caption", "provider", provider, "model", model, "length", len(caption))
	return caption, nil
}

func (s *Service) getDefaultModel(provider string) string {
	switch provider {
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "llava:13b"
		}
		return model
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return "gemini-1.5-flash"
		}
		return model
	default:
		return ""
	}
}

func buildCaptionPrompt() string {
	return `Describe this image as a prompt for an anime-style image generator.

Respond with ONLY a single line of comma separated tags, most important first:
subject count (e.g. 1girl), character traits, clothing, pose, expression,
background, lighting, art style. Do not write sentences, explanations or a
negative prompt.`
}

// cleanCaption strips markdown fences and joins the reply onto one line
func cleanCaption(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")

	var parts []string
	for _, line := range strings.Split(response, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
