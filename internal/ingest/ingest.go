// Package ingest selects the input PDFs of a batch and fingerprints them.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Input is one selected document.
type Input struct {
	Path string
	// Base is the file name without extension; it keys the output triple.
	Base string
	Size int64
}

// DirStats summarizes a directory listing.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// ListPDFs returns the regular files directly in dir whose lowercased name starts with the
// lowercased prefix and ends in .pdf, sorted by name. An empty prefix selects every PDF.
// Hidden files are skipped.
func ListPDFs(dir, prefix string) ([]Input, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(dir) == "" {
		return nil, stats, errors.New("input dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("read input dir: %w", err)
	}
	prefix = strings.ToLower(prefix)

	var out []Input
	for _, e := range entries {
		stats.Scanned++
		name := e.Name()
		lower := strings.ToLower(name)
		if e.IsDir() || isHidden(name) || !strings.HasPrefix(lower, prefix) || !constants.IsAllowedExt(filepath.Ext(lower)) {
			stats.Skipped++
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			stats.Skipped++
			continue
		}
		stats.Matched++
		out = append(out, Input{
			Path: filepath.Join(dir, name),
			Base: strings.TrimSuffix(name, filepath.Ext(name)),
			Size: info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, stats, nil
}

// HashFile returns the hex sha256 of the file at path and its size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
