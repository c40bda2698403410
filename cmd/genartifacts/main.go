// Command genartifacts writes the demo artifact bundle: label encoders over
// the weatherAUS vocabularies, a standard scaler, a logistic regression, and
// median/most-frequent imputers. The bundle is for local runs and tests; real
// artifacts come from the training notebook export.
//
// Usage:
//
//	go run ./cmd/genartifacts -out ./artifacts
//	go run ./cmd/genartifacts -out ./artifacts -compress zstd
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", ".", "output directory for the artifact files")
	compress := flag.String("compress", "none", "compression for the files: none, zstd, or gzip")
	flag.Parse()

	c, err := artifact.ParseCompression(*compress)
	if err != nil {
		flag.Usage()
		return err
	}

	// Set a fixed clock for a reproducible trained_at.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	paths, err := artifact.WriteDocuments(*out, artifact.DemoDocuments(domain.Now()), c)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	for _, p := range paths {
		log.Printf("wrote %s", p)
	}

	// Round-trip through the loader so a broken bundle never ships.
	if _, err := artifact.Load(*out); err != nil {
		return fmt.Errorf("verify artifacts: %w", err)
	}
	log.Printf("verified %d artifacts in %s", len(paths), *out)
	return nil
}
