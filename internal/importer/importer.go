// Package importer loads questions into the question bank from text files and
// structured JSON or YAML bundles.
package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rshatalov/rpy/internal/models"
	"github.com/rshatalov/rpy/internal/observability"
	"github.com/rshatalov/rpy/internal/services"
	contextutils "github.com/rshatalov/rpy/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Format identifies the layout of an import file
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "md", "txt":
		return FormatText, nil
	}
	return "", contextutils.NewInvalidInputf("unknown import format %q", s)
}

// DetectFormat guesses the format from a file extension, defaulting to text
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatText
}

// Transactor runs fn with a question writer bound to a single transaction
type Transactor interface {
	WithWriter(ctx context.Context, fn func(ctx context.Context, w services.QuestionWriter) error) error
}

// CategoryReport summarises one category or tag of an import
type CategoryReport struct {
	Name     string `json:"name"`
	Found    int    `json:"found"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Reason   string `json:"reason,omitempty"`
}

// Report describes the outcome of an import
type Report struct {
	Format      Format           `json:"format"`
	DryRun      bool             `json:"dry_run"`
	Categories  []CategoryReport `json:"categories"`
	Found       int              `json:"found"`
	Imported    int              `json:"imported"`
	Skipped     int              `json:"skipped"`
	TagsCreated int              `json:"tags_created"`
}

// Options controls an import run
type Options struct {
	Format Format
	// DryRun performs every write and rolls the transaction back
	DryRun bool
}

// errDryRun rolls back a dry-run transaction
var errDryRun = errors.New("dry run")

// Importer writes parsed questions through a Transactor
type Importer struct {
	tx     Transactor
	logger *observability.Logger
}

// NewImporter creates an importer
func NewImporter(tx Transactor, logger *observability.Logger) *Importer {
	return &Importer{tx: tx, logger: logger}
}

// ImportFile reads path and imports it, detecting the format when opts.Format is empty
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read %s", path)
	}
	if opts.Format == "" {
		opts.Format = DetectFormat(path)
	}
	return im.Import(ctx, data, opts)
}

// Import parses data and writes its questions in one transaction
func (im *Importer) Import(ctx context.Context, data []byte, opts Options) (report *Report, err error) {
	ctx, span := observability.TraceImportFunction(ctx, "import",
		attribute.String("import.format", string(opts.Format)), attribute.Bool("import.dry_run", opts.DryRun))
	defer observability.FinishSpan(span, &err)

	var run func(ctx context.Context, w services.QuestionWriter, report *Report) error
	switch opts.Format {
	case FormatText, "":
		opts.Format = FormatText
		categories := ParseText(string(data))
		run = func(ctx context.Context, w services.QuestionWriter, report *Report) error {
			return importCategories(ctx, w, categories, report)
		}
	case FormatJSON, FormatYAML:
		bundle, err := ParseBundle(data, opts.Format)
		if err != nil {
			return nil, err
		}
		run = func(ctx context.Context, w services.QuestionWriter, report *Report) error {
			return importBundle(ctx, w, bundle, report)
		}
	default:
		return nil, contextutils.NewInvalidInputf("unknown import format %q", opts.Format)
	}

	err = im.tx.WithWriter(ctx, func(ctx context.Context, w services.QuestionWriter) error {
		report = &Report{Format: opts.Format, DryRun: opts.DryRun, Categories: []CategoryReport{}}
		if err := run(ctx, w, report); err != nil {
			return err
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		im.logger.Error(ctx, "Import failed", err, map[string]interface{}{"format": string(opts.Format)})
		return nil, err
	}

	span.SetAttributes(attribute.Int("import.imported", report.Imported), attribute.Int("import.skipped", report.Skipped))
	im.logger.Info(ctx, "Import finished", map[string]interface{}{
		"format":       string(report.Format),
		"dry_run":      report.DryRun,
		"found":        report.Found,
		"imported":     report.Imported,
		"skipped":      report.Skipped,
		"tags_created": report.TagsCreated,
	})
	return report, nil
}

// importCategories writes text-file questions, tagging each with the tag whose
// slug equals its category name. Categories without a tag are skipped.
func importCategories(ctx context.Context, w services.QuestionWriter, categories []ParsedCategory, report *Report) error {
	for _, category := range categories {
		entry := CategoryReport{Name: category.Name, Found: len(category.Questions)}
		report.Found += entry.Found

		exists, err := w.TagExists(ctx, category.Name)
		if err != nil {
			return err
		}
		if !exists {
			entry.Skipped = entry.Found
			entry.Reason = "no tag with this slug"
			report.Skipped += entry.Skipped
			report.Categories = append(report.Categories, entry)
			continue
		}

		for _, q := range category.Questions {
			if q.Question == "" || q.Answer == "" {
				entry.Skipped++
				continue
			}
			if _, err := w.CreateQuestion(ctx, models.QuestionInput{
				QuestionText: q.Question,
				AnswerText:   q.Answer,
				Tags:         []string{category.Name},
			}); err != nil {
				return contextutils.WrapErrorf(err, "failed to import %s question %q", category.Name, q.Marker)
			}
			entry.Imported++
		}
		if entry.Skipped > 0 {
			entry.Reason = "missing question or answer text"
		}
		report.Imported += entry.Imported
		report.Skipped += entry.Skipped
		report.Categories = append(report.Categories, entry)
	}
	return nil
}

// importBundle creates the bundle's missing tags and then its questions
func importBundle(ctx context.Context, w services.QuestionWriter, bundle *Bundle, report *Report) error {
	for _, tag := range bundle.Tags {
		if strings.TrimSpace(tag.Title) == "" {
			tag.Title = tag.Slug
		}
		created, err := w.EnsureTag(ctx, tag)
		if err != nil {
			return err
		}
		if created {
			report.TagsCreated++
		}
	}

	perTag := map[string]*CategoryReport{}
	var order []string
	for i, q := range bundle.Questions {
		if _, err := w.CreateQuestion(ctx, models.QuestionInput{
			QuestionText: q.Question,
			AnswerText:   q.Answer,
			Difficulty:   q.Difficulty,
			Tags:         q.Tags,
		}); err != nil {
			return contextutils.WrapErrorf(err, "failed to import bundle question %d", i+1)
		}
		report.Found++
		report.Imported++

		names := q.Tags
		if len(names) == 0 {
			names = []string{""}
		}
		for _, name := range names {
			entry, ok := perTag[name]
			if !ok {
				entry = &CategoryReport{Name: name}
				perTag[name] = entry
				order = append(order, name)
			}
			entry.Found++
			entry.Imported++
		}
	}
	for _, name := range order {
		report.Categories = append(report.Categories, *perTag[name])
	}
	return nil
}
