package detect

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/macropower/rulecat/pkg/catalog"
	"github.com/macropower/rulecat/pkg/log"
)

const DefaultMaxDepth = 3

var (
	// DefaultSkipDirs are directory names that are never descended into.
	DefaultSkipDirs = []string{".git", "node_modules", "vendor", ".venv", "venv", "dist", "build", "target", "__pycache__"}

	tracer = otel.Tracer("detect")
)

// ProjectContext is the inferred technology and maturity profile of a
// directory. It is created once per request and never mutated.
type ProjectContext struct {
	WorkingDirectory string   `json:"workingDirectory"`
	Maturity         string   `json:"maturity"`
	Languages        []string `json:"languages"`
	Frameworks       []string `json:"frameworks"`
	CloudProviders   []string `json:"cloudProviders"`
	// Signals lists the markers that matched, as kind/name.
	Signals    []string `json:"signals,omitempty"`
	Confidence float64  `json:"confidence"`
}

// EmptyContext returns the context used when nothing could be detected.
func EmptyContext(dir string) ProjectContext {
	return ProjectContext{
		WorkingDirectory: dir,
		Maturity:         catalog.MaturityMVP,
		Languages:        []string{},
		Frameworks:       []string{},
		CloudProviders:   []string{},
	}
}

// Summary returns a short description such as "go/gin".
func (p ProjectContext) Summary() string {
	parts := slices.Concat(p.Languages, p.Frameworks)
	if len(parts) == 0 {
		return "unknown project"
	}

	return strings.Join(parts, "/")
}

// IsEmpty reports whether nothing was detected.
func (p ProjectContext) IsEmpty() bool {
	return len(p.Languages) == 0 && len(p.Frameworks) == 0 && len(p.CloudProviders) == 0
}

// Detector infers a [ProjectContext] from a directory listing.
type Detector struct {
	markers  []*Marker
	skipDirs []string
	maxDepth int
}

// DetectorOpt configures a [Detector].
type DetectorOpt func(*Detector)

// WithMarkers replaces the default markers.
func WithMarkers(markers ...*Marker) DetectorOpt {
	return func(d *Detector) {
		d.markers = markers
	}
}

// WithExtraMarkers appends markers to the current set.
func WithExtraMarkers(markers ...*Marker) DetectorOpt {
	return func(d *Detector) {
		d.markers = append(d.markers, markers...)
	}
}

// WithMaxDepth sets how many directory levels are listed. Values below one
// list only the top level.
func WithMaxDepth(depth int) DetectorOpt {
	return func(d *Detector) {
		d.maxDepth = max(depth, 1)
	}
}

// WithSkipDirs sets the directory names that are not descended into.
func WithSkipDirs(names ...string) DetectorOpt {
	return func(d *Detector) {
		d.skipDirs = names
	}
}

// NewDetector creates a new [Detector] using [DefaultMarkers] unless
// configured otherwise.
func NewDetector(opts ...DetectorOpt) *Detector {
	d := &Detector{
		markers:  DefaultMarkers(),
		skipDirs: DefaultSkipDirs,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Markers returns the markers evaluated by the detector.
func (d *Detector) Markers() []*Marker {
	return slices.Clone(d.markers)
}

// Detect lists dir and evaluates every marker against the listing. It never
// fails: an unreadable directory yields [EmptyContext], and a marker that
// cannot be evaluated counts as checked but not matched.
func (d *Detector) Detect(ctx context.Context, dir string) ProjectContext {
	ctx, span := tracer.Start(ctx, "detect")
	defer span.End()

	logger := log.FromContext(ctx).With(slog.String("dir", dir))

	absDir, err := filepath.Abs(dir)
	if err != nil {
		logger.DebugContext(ctx, "resolve directory", slog.Any("error", err))

		return EmptyContext(dir)
	}

	files, dirs, err := d.list(absDir)
	if err != nil {
		logger.DebugContext(ctx, "list directory", slog.Any("error", err))
		span.RecordError(err)

		return EmptyContext(absDir)
	}

	pc := EmptyContext(absDir)

	var checked, matched, maturity int

	for _, m := range d.markers {
		if err := ctx.Err(); err != nil {
			logger.DebugContext(ctx, "detection cancelled", slog.Any("error", err))

			break
		}

		checked++

		ok, err := m.MatchFiles(absDir, files, dirs)
		if err != nil {
			logger.DebugContext(ctx, "marker evaluation failed",
				slog.String("marker", m.String()),
				slog.Any("error", err),
			)

			continue
		}

		if !ok {
			continue
		}

		matched++

		pc.Signals = append(pc.Signals, m.String())

		switch m.Kind {
		case KindLanguage:
			pc.Languages = append(pc.Languages, m.Name)
		case KindFramework:
			pc.Frameworks = append(pc.Frameworks, m.Name)
		case KindCloud:
			pc.CloudProviders = append(pc.CloudProviders, m.Name)
		case KindMaturity:
			maturity++
		}
	}

	pc.Languages = sortedSet(pc.Languages)
	pc.Frameworks = sortedSet(pc.Frameworks)
	pc.CloudProviders = sortedSet(pc.CloudProviders)
	pc.Maturity = maturityLevel(maturity)
	pc.Confidence = confidence(matched, checked)

	span.SetAttributes(
		attribute.StringSlice("languages", pc.Languages),
		attribute.StringSlice("frameworks", pc.Frameworks),
		attribute.Float64("confidence", pc.Confidence),
	)

	logger.DebugContext(ctx, "detected project context",
		slog.Any("languages", pc.Languages),
		slog.Any("frameworks", pc.Frameworks),
		slog.Any("cloud", pc.CloudProviders),
		slog.String("maturity", pc.Maturity),
		slog.Int("files", len(files)),
		slog.Int("matched", matched),
		slog.Int("checked", checked),
	)

	return pc
}

// list walks absDir up to the maximum depth and returns the absolute paths of
// the files and directories found below it.
func (d *Detector) list(absDir string) ([]string, []string, error) {
	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open directory %q: %w", absDir, err)
	}
	defer root.Close() //nolint:errcheck // Read-only.

	var files, dirs []string

	err = fs.WalkDir(root.FS(), ".", func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if path == "." {
				return err
			}
			if de != nil && de.IsDir() {
				return fs.SkipDir
			}

			return nil
		}

		if path == "." {
			return nil
		}

		depth := strings.Count(path, "/") + 1

		if de.IsDir() {
			if slices.Contains(d.skipDirs, de.Name()) {
				return fs.SkipDir
			}

			dirs = append(dirs, filepath.Join(absDir, filepath.FromSlash(path)))

			if depth >= d.maxDepth {
				return fs.SkipDir
			}

			return nil
		}

		files = append(files, filepath.Join(absDir, filepath.FromSlash(path)))

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %q: %w", absDir, err)
	}

	return files, dirs, nil
}

// maturityLevel maps the number of matched maturity signals to a level.
func maturityLevel(signals int) string {
	switch {
	case signals >= 2:
		return catalog.MaturityProduction
	case signals == 1:
		return catalog.MaturityPreProduction
	default:
		return catalog.MaturityMVP
	}
}

func confidence(matched, checked int) float64 {
	if checked == 0 {
		return 0
	}

	c := float64(matched) / float64(checked)
	if math.IsNaN(c) {
		return 0
	}

	return min(max(c, 0), 1)
}

func sortedSet(in []string) []string {
	slices.Sort(in)

	return slices.Compact(in)
}

// Validate compiles every marker, returning the first error.
func (d *Detector) Validate() error {
	for _, m := range d.markers {
		if err := m.Compile(); err != nil {
			return err
		}
	}

	return nil
}
