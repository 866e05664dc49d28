// Package local persists annotation responses to the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// MissingIDStem prefixes the file name of records without an identifier.
const MissingIDStem = "nan"

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

// Config captures the parameters for the filesystem writer.
type Config struct {
	// BaseDir is the directory the pipeline's JSON files are written to.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Writer writes one JSON file per record.
type Writer struct {
	baseDir string
	hasher  annotate.Hasher
	logger  *zap.Logger
}

var _ annotate.Writer = (*Writer)(nil)

// New creates a writer rooted at cfg.BaseDir, creating it when missing.
func New(cfg Config, hasher annotate.Hasher, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &Writer{
		baseDir: cfg.BaseDir,
		hasher:  hasher,
		logger:  logger,
	}, nil
}

// Stem derives the file name without extension. Records with a DOI use it
// with path separators replaced; the rest use MissingIDStem and a SHA-224 of
// the abstract.
func (w *Writer) Stem(rec annotate.Record) (string, error) {
	if rec.HasDOI() {
		return pathSeparators.Replace(rec.DOI), nil
	}
	digest, err := w.hasher.Hash([]byte(rec.Abstract))
	if err != nil {
		return "", fmt.Errorf("hash abstract: %w", err)
	}
	return MissingIDStem + "_" + digest, nil
}

// Write stores body verbatim at <dir>/<stem>.json, overwriting any previous file.
func (w *Writer) Write(ctx context.Context, body string, rec annotate.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	stem, err := w.Stem(rec)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(w.baseDir, stem+".json")

	// Clean the path and verify it's within baseDir to prevent path traversal.
	cleanBaseDir := filepath.Clean(w.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected for stem %q", stem)
	}

	w.logger.Info("writing JSON", zap.String("path", fullPath))
	if err := os.WriteFile(fullPath, []byte(body), 0o600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fullPath, nil
}

// ErrOutputExists is returned by MakeOutputDir when the pipeline directory is already present.
var ErrOutputExists = errors.New("output directory already exists")

// MakeOutputDir creates <root>/<name>, creating root as needed. An existing
// <root>/<name> is an error so that a run never mixes output with a previous one.
func MakeOutputDir(root, name string) (string, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", fmt.Errorf("create output root %s: %w", root, err)
	}
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o750); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", dir, ErrOutputExists)
		}
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return dir, nil
}
