package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngChunk(typ string, data []byte) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(typ)
	b.Write(data)
	_ = binary.Write(&b, binary.BigEndian, crc32.ChecksumIEEE(append([]byte(typ), data...)))
	return b.Bytes()
}

func writePNG(t *testing.T, path string, text ...string) {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 512)
	binary.BigEndian.PutUint32(ihdr[4:8], 768)
	b.Write(pngChunk("IHDR", ihdr))
	for i := 0; i+1 < len(text); i += 2 {
		b.Write(pngChunk("tEXt", []byte(text[i]+"\x00"+text[i+1])))
	}
	b.Write(pngChunk("IEND", nil))
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteExtractCSV(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), "Comment", `{"prompt": "1girl", "uc": "lowres", "seed": 3}`, "Software", "NovelAI")
	writePNG(t, filepath.Join(dir, "b.png"))
	if err := os.WriteFile(filepath.Join(dir, "b.png.json"), []byte(`{"description": "prompt: from sidecar"}`), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := executeExtract(context.Background(), []string{dir}, extractOptions{format: "csv", concurrency: 2}, &out)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(lines))
	}

	a, b := lines[1], lines[2]
	if !strings.HasSuffix(a[0], "a.png") || a[4] != "1girl" || a[5] != "lowres" || a[3] != "NovelAI" {
		t.Errorf("Unexpected row for a.png: %v", a)
	}
	if a[1] != "512" || a[2] != "768" {
		t.Errorf("Expected 512x768, got %sx%s", a[1], a[2])
	}
	if b[4] != "from sidecar" {
		t.Errorf("Expected prompt from sidecar, got %q", b[4])
	}
	if source := b[len(b)-1]; source != "drive-description" {
		t.Errorf("Expected source drive-description, got %s", source)
	}
}

func TestExecuteExtractValidation(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))

	tests := []struct {
		name string
		opts extractOptions
	}{
		{"unknown format", extractOptions{format: "xml"}},
		{"parquet to stdout", extractOptions{format: "parquet"}},
		{"alpha without url", extractOptions{format: "csv", useAlpha: true}},
	}

	t.Setenv("ALPHA_DECODER_URL", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := executeExtract(context.Background(), []string{dir}, tt.opts, &out); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestExtractThenInspect(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), "parameters", "masterpiece\nNegative prompt: bad\nSteps: 20, Seed: 9")
	output := filepath.Join(t.TempDir(), "records.jsonl")

	var out bytes.Buffer
	err := executeExtract(context.Background(), []string{dir}, extractOptions{format: "jsonl", output: output, concurrency: 1}, &out)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("Expected nothing on stdout when writing to a file, got %q", out.String())
	}

	var report bytes.Buffer
	if err := executeInspect(context.Background(), &report, output, 0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := report.String()
	for _, want := range []string{"Loaded 1 records", "Prompt:    masterpiece", "Negative:  bad", "Seed:      9", "Size:      512x768"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected inspect output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestPrintChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, "Title", "hello", "Software", "NovelAI")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printChunks(&out, path, data); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := out.String()
	for _, want := range []string{"Size:    512x768", "Stealth: false", "Chunks:  2", "Title\nhello", "Software\nNovelAI"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}

	if err := printChunks(&out, "x.jpg", []byte("jpeg")); err == nil {
		t.Error("Expected error for non-PNG data")
	}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	wc := &failingCloser{closeErr: errors.New("disk full")}
	err := writeAndClose(wc, func(w io.Writer) error {
		_, err := io.WriteString(w, "data")
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected close error, got %v", err)
	}

	wc = &failingCloser{}
	err = writeAndClose(wc, func(w io.Writer) error { return errors.New("encode failed") })
	if err == nil || err.Error() != "encode failed" {
		t.Errorf("Expected write error, got %v", err)
	}
	if !wc.closed {
		t.Error("Expected output to be closed after a failed write")
	}

	wc = &failingCloser{}
	if err := writeAndClose(wc, func(w io.Writer) error { return nil }); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewServeServiceReadsEnvironmentAtRunTime(t *testing.T) {
	t.Setenv("ALPHA_DECODER_URL", "")
	t.Setenv("CAPTION_PROVIDER", "")

	svc := newServeService("", "")
	if svc.Captions != nil || svc.Alpha != nil {
		t.Errorf("Expected no optional sources, got %+v", svc)
	}

	// set after flag defaults would have been computed
	t.Setenv("CAPTION_PROVIDER", "ollama")
	t.Setenv("ALPHA_DECODER_URL", "http://decoder.local")

	svc = newServeService("", "")
	if svc.CaptionProvider != "ollama" || svc.Captions == nil {
		t.Errorf("Expected caption provider ollama from environment, got %q", svc.CaptionProvider)
	}
	if svc.Alpha == nil {
		t.Error("Expected alpha decoder from environment")
	}

	svc = newServeService("", "openai")
	if svc.CaptionProvider != "openai" {
		t.Errorf("Expected flag to win over environment, got %q", svc.CaptionProvider)
	}
}
