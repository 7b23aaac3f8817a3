package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/imagetoprompts/naimeta/internal/alpha"
	"github.com/imagetoprompts/naimeta/internal/caption"
	"github.com/imagetoprompts/naimeta/internal/export"
	"github.com/imagetoprompts/naimeta/internal/extract"
)

type extractOptions struct {
	format          string
	output          string
	useAlpha        bool
	alphaURL        string
	captionProvider string
	captionModel    string
	concurrency     int
}

type extracted struct {
	path   string
	result extract.Result
	err    error
}

func newExtractCmd() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract PATH...",
		Short: "Extract generation metadata from images",
		Long: `Reads every image under the given files and directories and writes one
resolved record per image.

A sidecar file named <image>.json may supply a host description and
properties ({"description": "...", "properties": {...}}). The alpha decoder
service and an LLM caption are only consulted for images that carry no
prompt of their own.`,
		Example: `  # Print a CSV for a folder of images
  naimeta extract ./images

  # Write Parquet, using the alpha decoder for stealth images
  naimeta extract ./images --format parquet --output records.parquet --alpha

  # Dump the embedded JSON documents as TSV
  naimeta extract ./images --format tsv

  # Caption images without metadata using Ollama
  naimeta extract ./images --caption ollama --model llava:13b`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeExtract(cmd.Context(), args, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "Output format (csv, tsv, jsonl, yaml, parquet)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&opts.useAlpha, "alpha", false, "Decode stealth images with the alpha decoder service")
	cmd.Flags().StringVar(&opts.alphaURL, "alpha-url", "", "Alpha decoder URL (defaults to ALPHA_DECODER_URL)")
	cmd.Flags().StringVar(&opts.captionProvider, "caption", "", "Caption provider for images without metadata (gemini, ollama, openai)")
	cmd.Flags().StringVar(&opts.captionModel, "model", "", "Caption model (defaults per provider)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Number of images to process in parallel")

	return cmd
}

func executeExtract(ctx context.Context, paths []string, opts extractOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if format.Binary() && opts.output == "" {
		return fmt.Errorf("--output is required for %s", format)
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}

	files, err := extract.FindImages(paths)
	if err != nil {
		return err
	}
	slog.Info("Extracting metadata", "files", len(files), "format", format, "concurrency", opts.concurrency)

	svc, err := newExtractService(opts)
	if err != nil {
		return err
	}

	results := runExtract(ctx, svc, files, opts.concurrency)

	var rows []export.Row
	var raw []export.RawEntry
	failed := 0
	for _, r := range results {
		if r.err != nil {
			slog.Error("Failed to extract metadata", "path", r.path, "err", r.err)
			failed++
			continue
		}
		rows = append(rows, export.NewRow(r.path, r.result.ExtractionMethod, r.result.Record))
		raw = append(raw, export.RawEntry{Filename: r.path, JSON: r.result.RawJSON})
	}

	write := func(w io.Writer) error {
		switch format {
		case export.FormatCSV:
			return export.WriteCSV(w, rows)
		case export.FormatTSV:
			return export.WriteRawTSV(w, raw)
		case export.FormatJSONL:
			return export.WriteJSONL(w, rows)
		case export.FormatYAML:
			return export.WriteYAML(w, export.RunConfig{
				Inputs:          paths,
				Alpha:           opts.useAlpha,
				CaptionProvider: opts.captionProvider,
				CaptionModel:    opts.captionModel,
				Timestamp:       time.Now().Format(time.RFC3339),
			}, rows)
		default:
			return export.WriteParquet(w, rows)
		}
	}

	if opts.output == "" {
		err = write(stdout)
	} else {
		var f *os.File
		f, err = os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		err = writeAndClose(f, write)
	}
	if err != nil {
		return err
	}

	slog.Info("Extraction complete", "records", len(rows), "failed", failed)
	if failed > 0 && len(rows) == 0 {
		return fmt.Errorf("failed to extract metadata from %d files", failed)
	}
	return nil
}

// writeAndClose reports a failed Close, which is where buffered output
// reaches the disk
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func newExtractService(opts extractOptions) (*extract.Service, error) {
	svc := &extract.Service{}

	if opts.useAlpha {
		client := alpha.New(opts.alphaURL)
		if !client.Enabled() {
			return nil, fmt.Errorf("--alpha needs --alpha-url or ALPHA_DECODER_URL")
		}
		svc.Alpha = client
	}

	if opts.captionProvider != "" {
		svc.Captions = caption.NewService()
		svc.CaptionProvider = opts.captionProvider
		svc.CaptionModel = opts.captionModel
	}
	return svc, nil
}

// runExtract processes the files with a bounded number of workers and returns
// the results in input order
func runExtract(ctx context.Context, svc *extract.Service, files []string, concurrency int) []extracted {
	results := make([]extracted, len(files))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, path := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			results[idx].path = path
			if err := ctx.Err(); err != nil {
				results[idx].err = err
				return
			}

			slog.Debug("Processing image", "path", path, "progress", fmt.Sprintf("%d/%d", idx+1, len(files)))

			in, err := extract.LoadFile(path)
			if err != nil {
				results[idx].err = err
				return
			}
			results[idx].result = svc.Process(ctx, in)
		}(i, path)
	}

	wg.Wait()
	return results
}
