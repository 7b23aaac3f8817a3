package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imagetoprompts/naimeta/internal/pngchunk"
	"github.com/imagetoprompts/naimeta/internal/stealth"
)

func newChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks FILE",
		Short: "Print the text chunks of a PNG file",
		Long: `Lists every tEXt and iTXt chunk in a PNG file, the image size from its
header and whether the stealth marker is present.`,
		Example: `  naimeta chunks image.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			return printChunks(cmd.OutOrStdout(), args[0], data)
		},
	}
}

func printChunks(w io.Writer, name string, data []byte) error {
	if !pngchunk.HasSignature(data) {
		return fmt.Errorf("%s is not a PNG file", name)
	}

	fmt.Fprintf(w, "File:    %s\n", name)
	if width, height, ok := pngchunk.Dimensions(data); ok {
		fmt.Fprintf(w, "Size:    %dx%d\n", width, height)
	}
	fmt.Fprintf(w, "Stealth: %v\n", stealth.Scan(data))

	chunks := pngchunk.Decode(data)
	fmt.Fprintf(w, "Chunks:  %d\n", len(chunks))
	for _, kv := range chunks {
		fmt.Fprintln(w, strings.Repeat("-", 80))
		fmt.Fprintf(w, "%s\n%s\n", kv.Key, kv.Value)
	}
	return nil
}
