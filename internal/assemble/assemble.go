// Package assemble hands Ready groups to the archival writer.
//
// The writer itself lives outside bidsprep. ManifestWriter records the bundle
// it would receive as a JSON manifest under the output directory, optionally
// with source checksums, and Schema describes that manifest.
package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"bidsprep/internal/fileutil"
	"bidsprep/internal/group"
	"bidsprep/internal/textutil"
)

// Assembler consumes the inputs of one Ready group.
type Assembler interface {
	Assemble(ctx context.Context, bundle group.Bundle) (Result, error)
}

// Result reports where an assembler put its output.
type Result struct {
	ManifestPath string
	Jobs         int
}

// Manifest is the document ManifestWriter produces.
type Manifest struct {
	group.Bundle
	GeneratedAt time.Time         `json:"generated_at" jsonschema:"required"`
	Checksums   map[string]string `json:"checksums,omitempty" jsonschema:"description=SHA-256 of every source file keyed by path"`
}

// ManifestWriter writes one manifest per group to
// <OutputDir>/sub-<subject>/<folder>.json.
type ManifestWriter struct {
	OutputDir string
	Checksums bool
	Now       func() time.Time
}

func (w ManifestWriter) Assemble(ctx context.Context, bundle group.Bundle) (Result, error) {
	if w.OutputDir == "" {
		return Result{}, fmt.Errorf("manifest writer: output directory not configured")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	manifest := Manifest{Bundle: bundle, GeneratedAt: now().UTC()}
	if w.Checksums {
		sums, err := checksums(ctx, bundle)
		if err != nil {
			return Result{}, err
		}
		manifest.Checksums = sums
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode manifest: %w", err)
	}
	path := w.ManifestPath(bundle)
	if err := fileutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return Result{}, fmt.Errorf("write manifest: %w", err)
	}
	return Result{ManifestPath: path, Jobs: len(bundle.Jobs)}, nil
}

// ManifestPath returns where the manifest for bundle is written.
func (w ManifestWriter) ManifestPath(bundle group.Bundle) string {
	subject := textutil.SanitizeLabel(bundle.Subject.ID)
	name := textutil.SanitizeFileName(filepath.Base(bundle.Group))
	return filepath.Join(w.OutputDir, "sub-"+subject, name+".json")
}

func checksums(ctx context.Context, bundle group.Bundle) (map[string]string, error) {
	sums := make(map[string]string)
	add := func(path string) error {
		if path == "" {
			return nil
		}
		if _, ok := sums[path]; ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := fileutil.SHA256(path)
		if err != nil {
			return fmt.Errorf("checksum: %w", err)
		}
		sums[path] = sum
		return nil
	}
	for _, job := range bundle.Jobs {
		paths := append([]string{job.Path, job.Digitizer, job.HeadShape}, job.Markers...)
		for _, p := range paths {
			if err := add(p); err != nil {
				return nil, err
			}
		}
	}
	return sums, nil
}
