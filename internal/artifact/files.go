// Package artifact loads the fitted model, scaler, encoders, and imputers
// exported by the offline training notebook.
//
// Each artifact is a JSON document with a fixed file name. Any of them may be
// stored compressed with a ".zst" or ".gz" suffix; the plain file wins when
// more than one variant exists.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// Fixed artifact file names.
const (
	ModelFile   = "Rainfall.json"
	ScalerFile  = "scale.json"
	EncoderFile = "encoder.json"
	ImputerFile = "imputer.json"
)

// Files lists every artifact a bundle needs, in load order.
var Files = []string{ModelFile, ScalerFile, EncoderFile, ImputerFile}

// Compression selects how WriteDocuments stores artifact files.
type Compression string

const (
	None Compression = "none"
	Zstd Compression = "zstd"
	Gzip Compression = "gzip"
)

// suffix returns the file extension appended for a compression.
func (c Compression) suffix() string {
	switch c {
	case Zstd:
		return ".zst"
	case Gzip:
		return ".gz"
	default:
		return ""
	}
}

// ParseCompression validates a compression name from a flag or env var.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case None, Zstd, Gzip:
		return c, nil
	case "":
		return None, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, zstd, or gzip)", s)
	}
}

var validate = validator.New()

// Resolve finds the stored variant of an artifact in dir.
func Resolve(dir, name string) (string, bool) {
	for _, c := range []Compression{None, Zstd, Gzip} {
		path := filepath.Join(dir, name+c.suffix())
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Missing returns the artifact names that have no stored variant in dir.
func Missing(dir string) []string {
	var missing []string
	for _, name := range Files {
		if _, ok := Resolve(dir, name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// multiCloser closes a decompressor and the file beneath it.
type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// open returns a reader over the decompressed contents of path.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, Zstd.suffix()):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	case strings.HasSuffix(path, Gzip.suffix()):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &multiCloser{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil
	default:
		return f, nil
	}
}

// readDocument decodes one artifact file into v. Open failures are reported
// as missing artifacts; decode failures as schema mismatches.
func readDocument(path string, v any) error {
	name := filepath.Base(path)
	r, err := open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s: %w", domain.ErrMissingArtifact, name, err)
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrSchemaMismatch, name, err)
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: decode: %w", domain.ErrSchemaMismatch, name, err)
	}
	return nil
}

// schemaError wraps a validation problem found in a decoded document.
func schemaError(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrSchemaMismatch, name, err)
}

// checkFeatureNames verifies optional feature names match the training order.
func checkFeatureNames(names []string) error {
	if len(names) == 0 {
		return nil
	}
	want := domain.ColumnNames()
	if len(names) != len(want) {
		return fmt.Errorf("feature_names has %d entries, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			return fmt.Errorf("feature_names[%d] is %q, want %q", i, names[i], want[i])
		}
	}
	return nil
}
