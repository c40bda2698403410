// Command inspect checks a directory of model artifacts and reports what each
// one contains: model kind and classes, scaler kind and width, encoded
// columns and vocabulary sizes, and imputer strategies. When every artifact
// loads it also runs a smoke prediction on a typical day built from the
// imputer fill values.
//
// Usage:
//
//	go run ./cmd/inspect -dir ./artifacts
//	go run ./cmd/inspect -dir ./artifacts -database "$DATABASE_URL" -recent 10
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/rainfall-predictor/internal/adapter/postgres"
	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// phase tracks pass/fail for one inspection step.
type phase struct {
	name   string
	notes  []string
	errors []string
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", sharedcfg.EnvOrDefault("ARTIFACT_DIR", "."), "directory containing model artifacts")
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"), "optional Postgres URL to list recent predictions")
	recent := flag.Int("recent", 10, "number of logged predictions to list with -database")
	flag.Parse()

	code := run(os.Stdout, *dir)
	if *databaseURL != "" {
		if err := listRecent(os.Stdout, *databaseURL, *recent); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: list recent predictions: %v\n", err)
			code = 1
		}
	}
	os.Exit(code)
}

func run(w io.Writer, dir string) int {
	fmt.Fprintf(w, "=== Rainfall Artifact Inspection: %s ===\n\n", dir)

	phases := []*phase{inspectFiles(dir)}
	for _, inspect := range []struct {
		file string
		fn   func(path string) *phase
	}{
		{artifact.ModelFile, inspectModel},
		{artifact.ScalerFile, inspectScaler},
		{artifact.EncoderFile, inspectEncoders},
		{artifact.ImputerFile, inspectImputers},
	} {
		// Each artifact found is inspected on its own, whatever the others hold.
		if path, ok := artifact.Resolve(dir, inspect.file); ok {
			phases = append(phases, inspect.fn(path))
		}
	}

	allPassed := true
	for _, p := range phases {
		allPassed = allPassed && p.passed()
	}
	if allPassed {
		phases = append(phases, smokePrediction(dir))
	}

	allPassed = true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-28s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll artifacts are usable.")
		return 0
	}
	fmt.Fprintln(w, "\nInspection FAILED.")
	return 1
}

func inspectFiles(dir string) *phase {
	p := &phase{name: "Artifact files"}
	for _, name := range artifact.Files {
		path, ok := artifact.Resolve(dir, name)
		if !ok {
			p.errorf("%s: not found (also tried .zst and .gz)", name)
			continue
		}
		p.notef("%-14s %s", name, path)
	}
	return p
}

func inspectModel(path string) *phase {
	p := &phase{name: "Model (" + artifact.ModelFile + ")"}
	_, info, err := artifact.ReadModel(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("type: %s", info.Kind)
	p.notef("classes: %v", info.Classes)
	if info.NumTrees > 0 {
		p.notef("trees: %d", info.NumTrees)
	}
	if !info.TrainedAt.IsZero() {
		p.notef("trained at: %s", info.TrainedAt.Format(time.RFC3339))
	}
	p.notef("feature names: %s", featureNames(info.FeatureNames))
	return p
}

func inspectScaler(path string) *phase {
	p := &phase{name: "Scaler (" + artifact.ScalerFile + ")"}
	_, info, err := artifact.ReadScaler(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("type: %s", info.Kind)
	if info.Kind != "none" {
		p.notef("n_features: %d", info.NumFeatures)
		p.notef("feature names: %s", featureNames(info.FeatureNames))
	}
	return p
}

func inspectEncoders(path string) *phase {
	p := &phase{name: "Encoders (" + artifact.EncoderFile + ")"}
	enc, err := artifact.ReadEncoders(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	encoded := enc.Columns()
	for _, col := range encoded {
		p.notef("%-12s %d classes", col, len(enc.Classes(col)))
	}
	for _, col := range domain.CategoricalColumns() {
		if !slices.Contains(encoded, col) {
			p.notef("%-12s no encoder, values must be numeric", col)
		}
	}
	if target := enc.TargetClasses(); len(target) > 0 {
		p.notef("target: %s", strings.Join(target, ", "))
	}
	return p
}

func inspectImputers(path string) *phase {
	p := &phase{name: "Imputers (" + artifact.ImputerFile + ")"}
	im, err := artifact.ReadImputers(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, part := range []struct {
		label string
		imp   *artifact.Imputer
	}{{"numeric", im.Numeric}, {"categorical", im.Categorical}} {
		if part.imp == nil {
			p.notef("%s: none", part.label)
			continue
		}
		p.notef("%s: %s over %d columns", part.label, part.imp.Strategy, len(part.imp.Columns()))
	}
	return p
}

// smokePrediction predicts a typical day assembled from the imputer fill
// values, proving the artifacts work together end to end.
func smokePrediction(dir string) *phase {
	p := &phase{name: "Smoke prediction"}
	b, err := artifact.Load(dir)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	form, ok := typicalDay(b.Imputers)
	if !ok {
		p.notef("skipped: imputers do not cover every column")
		return p
	}
	obs, err := domain.ParseObservation(form)
	if err != nil {
		p.errorf("typical day: %v", err)
		return p
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	enc, err := domain.Preprocess(obs, b.Encoder(), b.Scaler, logger)
	if err != nil {
		p.errorf("preprocess: %v", err)
		return p
	}
	pred, err := domain.Predict(b.Model, enc.Scaled)
	if err != nil {
		p.errorf("predict: %v", err)
		return p
	}
	p.notef("typical %s day: %s", obs.Location, pred.Outcome())
	if len(enc.Fallbacks) > 0 {
		p.notef("fill values outside encoder vocabulary: %s", strings.Join(enc.Fallbacks, ", "))
	}
	return p
}

// typicalDay builds form values from imputer statistics.
func typicalDay(im *artifact.Imputers) (map[string][]string, bool) {
	form := make(map[string][]string, domain.NumFeatures)
	for _, col := range domain.Columns {
		imp := im.Numeric
		if col.Kind == domain.Categorical {
			imp = im.Categorical
		}
		if imp == nil {
			return nil, false
		}
		v, ok := imp.Fill(col.Name)
		if !ok {
			return nil, false
		}
		switch x := v.(type) {
		case string:
			form[col.Name] = []string{x}
		case float64:
			form[col.Name] = []string{strconv.FormatFloat(x, 'g', -1, 64)}
		default:
			form[col.Name] = []string{fmt.Sprint(x)}
		}
	}
	return form, true
}

func listRecent(w io.Writer, databaseURL string, limit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n=== Last %d logged predictions ===\n", len(events))
	for _, e := range events {
		fmt.Fprintf(w, "  %s  %-16s %-9s %s\n", e.PredictedAt.Format(time.RFC3339), e.Observation.Location, e.Outcome, e.ID)
	}
	return nil
}

func featureNames(names []string) string {
	if len(names) == 0 {
		return "not available"
	}
	return strings.Join(names, ", ")
}
