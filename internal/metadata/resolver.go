package metadata

import (
	"fmt"
	"path/filepath"

	"tonearm/internal/services"
)

// Resolver merges per-directory metadata documents for tracks under a fixed
// library root.
type Resolver struct {
	root         string
	documentName string
}

// NewResolver builds a resolver bounded by the given library root. The root
// must be absolute; documents above it are never consulted.
func NewResolver(root, documentName string) *Resolver {
	return &Resolver{root: filepath.Clean(root), documentName: documentName}
}

// Resolve walks from the library root down to the track's directory, merging
// each directory's document. Later (deeper) layers override earlier ones on
// key collision; keys unique to an ancestor persist. The watermark is the
// maximum modification time among all documents read; absent documents
// contribute nothing.
func (r *Resolver) Resolve(trackPath string) (Resolved, error) {
	dirs, err := r.ancestry(trackPath)
	if err != nil {
		return Resolved{}, err
	}

	merged := map[string]any{}
	resolved := Resolved{}
	for _, dir := range dirs {
		layer, modTime, found, err := readDocument(filepath.Join(dir, r.documentName))
		if err != nil {
			return Resolved{}, err
		}
		if !found {
			continue
		}
		for key, value := range layer {
			merged[key] = value
		}
		if modTime.After(resolved.Watermark) {
			resolved.Watermark = modTime
		}
	}

	resolved.Fields = fieldsFromLayers(merged)
	return resolved, nil
}

// ancestry accumulates the directories from the library root down to the
// track's directory, making the traversal bound explicit.
func (r *Resolver) ancestry(trackPath string) ([]string, error) {
	dir := filepath.Dir(filepath.Clean(trackPath))

	var reversed []string
	for current := dir; ; {
		reversed = append(reversed, current)
		if current == r.root {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil, services.Wrap(services.ErrConfiguration, "metadata", "resolve ancestry",
				fmt.Sprintf("track %s is outside library root %s", trackPath, r.root), nil)
		}
		current = parent
	}

	dirs := make([]string, len(reversed))
	for i, dir := range reversed {
		dirs[len(reversed)-1-i] = dir
	}
	return dirs, nil
}
