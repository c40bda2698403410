package artifact

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// Bundle is one complete, validated set of artifacts. It is immutable once
// loaded and safe to share between requests.
type Bundle struct {
	Model      domain.Model
	ModelInfo  ModelInfo
	Scaler     domain.Scaler
	ScalerInfo ScalerInfo
	Encoders   *Encoders
	Imputers   *Imputers

	// Paths maps each artifact name to the file it was read from.
	Paths    map[string]string
	LoadedAt time.Time
}

// Load reads every artifact from dir. Nothing is returned unless all four
// load and validate; a missing file error names every absent artifact.
func Load(dir string) (*Bundle, error) {
	if missing := Missing(dir); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not found in %s", domain.ErrMissingArtifact, strings.Join(missing, ", "), dir)
	}

	paths := make(map[string]string, len(Files))
	for _, name := range Files {
		p, ok := Resolve(dir, name)
		if !ok {
			return nil, fmt.Errorf("%w: %s not found in %s", domain.ErrMissingArtifact, name, dir)
		}
		paths[name] = p
	}

	b := &Bundle{Paths: paths}
	var err error
	if b.Model, b.ModelInfo, err = ReadModel(paths[ModelFile]); err != nil {
		return nil, err
	}
	if b.Scaler, b.ScalerInfo, err = ReadScaler(paths[ScalerFile]); err != nil {
		return nil, err
	}
	if b.Encoders, err = ReadEncoders(paths[EncoderFile]); err != nil {
		return nil, err
	}
	if b.Imputers, err = ReadImputers(paths[ImputerFile]); err != nil {
		return nil, err
	}
	b.LoadedAt = domain.Now()
	return b, nil
}

// Encoder returns the bundle's encoders as a domain.Encoder.
func (b *Bundle) Encoder() domain.Encoder {
	if b.Encoders == nil {
		return nil
	}
	return b.Encoders
}
