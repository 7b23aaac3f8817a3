package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imagetoprompts/naimeta/internal/export"
)

func newInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect records from an exported dataset",
		Long:  `Inspect records from a parquet or jsonl file written by extract.`,
		Example: `  # Inspect the first 5 records
  naimeta inspect --dataset ./records.parquet --limit 5

  # Inspect all records (no limit)
  naimeta inspect --dataset ./records.jsonl --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("--dataset is required")
			}
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), datasetPath, limit)
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to parquet or jsonl dataset file (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to inspect (0 for all)")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func executeInspect(ctx context.Context, w io.Writer, datasetPath string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := export.NewLoader(datasetPath)

	var rows []export.Row
	var err error
	if limit > 0 {
		rows, err = loader.LoadSample(limit)
	} else {
		rows, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	fmt.Fprintf(w, "Loaded %d records from %s\n", len(rows), datasetPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	for i, row := range rows {
		if ctx.Err() != nil {
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		}

		r := row.Record()
		fmt.Fprintf(w, "RECORD %d/%d\n", i+1, len(rows))
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "File:      %s\n", row.Filename)
		fmt.Fprintf(w, "Source:    %s\n", row.Source)
		if r.Width.Valid && r.Height.Valid {
			fmt.Fprintf(w, "Size:      %sx%s\n", r.Width, r.Height)
		}
		fmt.Fprintf(w, "Model:     %s\n", r.Model)
		fmt.Fprintf(w, "Sampler:   %s\n", r.Sampler)
		fmt.Fprintf(w, "Steps:     %s\n", r.Steps)
		fmt.Fprintf(w, "Scale:     %s\n", r.Scale)
		fmt.Fprintf(w, "Seed:      %s\n", r.Seed)
		fmt.Fprintf(w, "Prompt:    %s\n", r.Prompt)
		fmt.Fprintf(w, "Negative:  %s\n", r.NegativePrompt)
		for n, c := range r.Characters {
			if c.Prompt == "" && c.Negative == "" {
				continue
			}
			fmt.Fprintf(w, "Char %d:    %s\n", n+1, c.Prompt)
			if c.Negative != "" {
				fmt.Fprintf(w, "Char %d UC: %s\n", n+1, c.Negative)
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}
