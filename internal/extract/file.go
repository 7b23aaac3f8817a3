package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sidecar carries host metadata for a local image, stored next to it as
// <image>.json
type Sidecar struct {
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
}

// SidecarPath returns where the sidecar for an image lives
func SidecarPath(imagePath string) string {
	return imagePath + ".json"
}

// LoadFile reads an image and its optional sidecar into an Input
func LoadFile(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("failed to read image: %w", err)
	}

	in := Input{
		Bytes:    data,
		Filename: filepath.Base(path),
	}

	sidecar, err := os.ReadFile(SidecarPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return in, nil
	}
	if err != nil {
		return Input{}, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var sc Sidecar
	if err := json.Unmarshal(sidecar, &sc); err != nil {
		return Input{}, fmt.Errorf("failed to parse sidecar %s: %w", SidecarPath(path), err)
	}
	in.Description = sc.Description
	in.Properties = sc.Properties
	return in, nil
}

// FindImages expands the given paths into image files. Directories are
// walked recursively; sidecars and non-image files are skipped. The result
// is sorted and free of duplicates.
func FindImages(paths []string) ([]string, error) {
	found := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			found[p] = true
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(path) {
				found[path] = true
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	files := make([]string, 0, len(found))
	for f := range found {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	}
	return false
}
