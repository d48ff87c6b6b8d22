package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Parser parses c.e label files and extracts label records.
//
// A c.e file is the text export of a label elimination run: every line
// describes one geolocated label together with the elimination time
// computed upstream. The layout is
//
//	<count>
//	<header line, ignored>
//	<lat> <lon> <osmId> <prio> <elimT> <radius> <labelFactor> '<label text>'
//	...
//
// The count on the first line is the number of label lines that follow
// the header.
type Parser interface {
	// Parse reads a c.e file and returns the extracted records
	// Returns error if file cannot be read or parsed
	Parse(filename string) (*File, error)

	// ParseWithOptions parses with custom options
	ParseWithOptions(filename string, opts ParseOptions) (*File, error)

	// ParseContext parses with custom options and stops early when ctx is done
	ParseContext(ctx context.Context, filename string, opts ParseOptions) (*File, error)

	// ParseReader parses c.e content from r. name is only used in errors.
	ParseReader(ctx context.Context, r io.Reader, name string, opts ParseOptions) (*File, error)
}

// ParseOptions configures parsing behavior
type ParseOptions struct {
	// StrictCount: if true, the number of parsed records must equal the
	// count declared on the first line.
	// Default: true
	StrictCount bool

	// SkipMalformed: if true, lines that do not match the label grammar are
	// recorded in File.Skipped and parsing continues. If false the first
	// malformed line aborts the parse.
	// Default: true
	SkipMalformed bool

	// MaxLineBytes bounds the length of a single line.
	// Default: 1 MiB
	MaxLineBytes int
}

// DefaultParseOptions returns parse options with defaults
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		StrictCount:   true,
		SkipMalformed: true,
		MaxLineBytes:  1 << 20,
	}
}

// Record is a single label line of a c.e file.
type Record struct {
	Line        int     // 1-based line number in the source
	Lat         float64 // Y coordinate
	Lon         float64 // X coordinate
	OSMID       int64   // Source object id
	Priority    int32   // Display priority class
	ElimT       float64 // Elimination time
	Radius      float64 // Label radius as exported (informational)
	LabelFactor float64 // Size factor applied to the base label template
	Text        string  // Label text without the enclosing quotes
}

// File is the result of parsing one c.e file.
type File struct {
	Path     string
	Declared int           // Count from the first line
	Header   string        // Second line, kept verbatim
	Records  []Record      // Parsed label records in file order
	Skipped  []*ParseError // Malformed lines skipped under SkipMalformed
}

// lineSyntax mirrors the grammar of the label exporter. Coordinates carry at
// most three integer digits, all numeric fields require a decimal point, and
// the label text runs to the last quote on the line.
var lineSyntax = regexp.MustCompile(`^` +
	`(?P<lat>-?\d{1,3}\.\d*(?:e-?\d+)?) ` +
	`(?P<lon>-?\d{1,3}\.\d*(?:e-?\d+)?) ` +
	`(?P<osmid>\d+) ` +
	`(?P<prio>\d+) ` +
	`(?P<elimt>\d+\.\d*(?:e-?\d+)?) ` +
	`(?P<radius>\d+\.\d*(?:e-?\d+)?) ` +
	`(?P<factor>\d+\.\d*(?:e-?\d+)?) ` +
	`'(?P<text>.*)'`)

var (
	groupLat    = lineSyntax.SubexpIndex("lat")
	groupLon    = lineSyntax.SubexpIndex("lon")
	groupOSMID  = lineSyntax.SubexpIndex("osmid")
	groupPrio   = lineSyntax.SubexpIndex("prio")
	groupElimT  = lineSyntax.SubexpIndex("elimt")
	groupRadius = lineSyntax.SubexpIndex("radius")
	groupFactor = lineSyntax.SubexpIndex("factor")
	groupText   = lineSyntax.SubexpIndex("text")
)

// defaultParser implements the Parser interface
type defaultParser struct {
}

// NewParser creates a new c.e parser
func NewParser() Parser {
	return &defaultParser{}
}

// Parse reads a c.e file and returns the extracted records
func (p *defaultParser) Parse(filename string) (*File, error) {
	return p.ParseWithOptions(filename, DefaultParseOptions())
}

// ParseWithOptions parses with custom options
func (p *defaultParser) ParseWithOptions(filename string, opts ParseOptions) (*File, error) {
	return p.ParseContext(context.Background(), filename, opts)
}

// ParseContext parses with custom options and honours ctx cancellation
func (p *defaultParser) ParseContext(ctx context.Context, filename string, opts ParseOptions) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParseError{Path: filename, Reason: "open file", Err: err}
	}
	defer f.Close()

	return p.ParseReader(ctx, f, filename, opts)
}

// ParseReader parses c.e content from r
func (p *defaultParser) ParseReader(ctx context.Context, r io.Reader, name string, opts ParseOptions) (*File, error) {
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultParseOptions().MaxLineBytes
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)

	file := &File{Path: name, Declared: -1}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &ParseError{Path: name, Line: lineNo, Reason: "parse cancelled", Err: err}
			}
		}

		line := strings.TrimRight(scanner.Text(), " \t\r")

		switch lineNo {
		case 1:
			declared, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil || declared < 0 {
				return nil, &ParseError{Path: name, Line: lineNo, Reason: fmt.Sprintf("invalid label count %q", line), Err: ErrMissingCount}
			}
			file.Declared = declared
			file.Records = make([]Record, 0, min(declared, 1<<20))
			continue
		case 2:
			file.Header = line
			continue
		}

		if line == "" {
			continue
		}

		rec, err := parseLine(line, lineNo)
		if err != nil {
			err.Path = name
			if !opts.SkipMalformed {
				return nil, err
			}
			file.Skipped = append(file.Skipped, err)
			continue
		}
		file.Records = append(file.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		reason := "read input"
		if errors.Is(err, bufio.ErrTooLong) {
			reason = fmt.Sprintf("line %d exceeds %d bytes", lineNo+1, maxLine)
		}
		return nil, &ParseError{Path: name, Line: lineNo + 1, Reason: reason, Err: err}
	}

	if file.Declared < 0 {
		return nil, &ParseError{Path: name, Reason: "empty input", Err: ErrMissingCount}
	}

	if opts.StrictCount && file.Declared != len(file.Records) {
		return nil, &ParseError{
			Path:   name,
			Reason: fmt.Sprintf("declared %d labels, parsed %d (%d skipped)", file.Declared, len(file.Records), len(file.Skipped)),
			Err:    ErrCountMismatch,
		}
	}

	return file, nil
}

// parseLine converts one label line into a Record.
func parseLine(line string, lineNo int) (Record, *ParseError) {
	m := lineSyntax.FindStringSubmatch(line)
	if m == nil {
		return Record{}, &ParseError{Line: lineNo, Reason: "line does not match label grammar", Err: ErrMalformedLine}
	}

	rec := Record{Line: lineNo, Text: m[groupText]}

	floats := []struct {
		field string
		group int
		dst   *float64
	}{
		{"lat", groupLat, &rec.Lat},
		{"lon", groupLon, &rec.Lon},
		{"elimination time", groupElimT, &rec.ElimT},
		{"radius", groupRadius, &rec.Radius},
		{"label factor", groupFactor, &rec.LabelFactor},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(m[f.group], 64)
		if err != nil {
			return Record{}, &ParseError{Line: lineNo, Reason: fmt.Sprintf("%s %q out of range", f.field, m[f.group]), Err: err}
		}
		*f.dst = v
	}

	id, err := strconv.ParseInt(m[groupOSMID], 10, 64)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Reason: fmt.Sprintf("osm id %q out of range", m[groupOSMID]), Err: err}
	}
	rec.OSMID = id

	prio, err := strconv.ParseInt(m[groupPrio], 10, 32)
	if err != nil {
		return Record{}, &ParseError{Line: lineNo, Reason: fmt.Sprintf("priority %q out of range", m[groupPrio]), Err: err}
	}
	rec.Priority = int32(prio)

	return rec, nil
}
