package labels

import (
	"context"

	"github.com/beetlebugorg/labelindex/internal/parser"
)

// Parser reads label files.
//
// Create a parser with NewParser and use Parse or ParseWithOptions to read
// c.e files. Init accepts any Parser through WithParser, so other input
// formats can be plugged in as long as they produce Labels.
type Parser interface {
	// Parse reads a label file with default options.
	Parse(filename string) (*LabelFile, error)

	// ParseWithOptions reads a label file with custom options.
	ParseWithOptions(filename string, opts ParseOptions) (*LabelFile, error)

	// ParseContext reads a label file and stops early when ctx is done.
	ParseContext(ctx context.Context, filename string, opts ParseOptions) (*LabelFile, error)
}

// LabelFile is the parsed content of one label file.
type LabelFile struct {
	Path    string
	Header  string
	Labels  []Label
	Skipped []*ParseError // Lines dropped under ParseOptions.SkipMalformed
}

// NewParser creates a new c.e parser with default settings.
//
// Example:
//
//	parser := labels.NewParser()
//	file, err := parser.Parse("baden-wuerttemberg.ce")
func NewParser() Parser {
	return &parserWrapper{
		internal: parser.NewParser(),
	}
}

// parserWrapper wraps the internal parser and converts types
type parserWrapper struct {
	internal parser.Parser
}

func (p *parserWrapper) Parse(filename string) (*LabelFile, error) {
	return p.ParseContext(context.Background(), filename, DefaultParseOptions())
}

func (p *parserWrapper) ParseWithOptions(filename string, opts ParseOptions) (*LabelFile, error) {
	return p.ParseContext(context.Background(), filename, opts)
}

func (p *parserWrapper) ParseContext(ctx context.Context, filename string, opts ParseOptions) (*LabelFile, error) {
	internalFile, err := p.internal.ParseContext(ctx, filename, opts.internal())
	if err != nil {
		return nil, err
	}
	return convertFile(internalFile), nil
}

// convertFile converts internal records to public labels
func convertFile(f *parser.File) *LabelFile {
	labels := make([]Label, len(f.Records))
	for i, rec := range f.Records {
		labels[i] = Label{
			ID:              rec.OSMID,
			Priority:        rec.Priority,
			Anchor:          GeoPoint{X: rec.Lon, Y: rec.Lat},
			EliminationTime: rec.ElimT,
			Radius:          rec.Radius,
			SizeFactor:      rec.LabelFactor,
			Text:            rec.Text,
		}
	}

	return &LabelFile{
		Path:    f.Path,
		Header:  f.Header,
		Labels:  labels,
		Skipped: f.Skipped,
	}
}
