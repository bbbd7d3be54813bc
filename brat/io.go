package brat

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

// ReadOption configures Read.
type ReadOption func(*reader)

// WithStrict makes Read fail on the first malformed line instead of
// logging and skipping it.
func WithStrict() ReadOption {
	return func(r *reader) { r.strict = true }
}

// WithFilter drops lines matching re before parsing.
func WithFilter(re *regexp.Regexp) ReadOption {
	return func(r *reader) { r.filter = re }
}

// WithLogger routes skipped-line warnings to logger.
func WithLogger(logger *slog.Logger) ReadOption {
	return func(r *reader) { r.logger = logger }
}

type reader struct {
	strict bool
	filter *regexp.Regexp
	logger *slog.Logger
}

// Read parses all standoff lines from r. Blank lines are ignored.
// Malformed lines are logged and skipped unless WithStrict is set.
func Read(r io.Reader, opts ...ReadOption) ([]Annotation, error) {
	br := reader{logger: slog.Default()}
	for _, opt := range opts {
		opt(&br)
	}

	var annotations []Annotation
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if br.filter != nil && br.filter.MatchString(line) {
			continue
		}

		a, err := Parse(line)
		if err != nil {
			if br.strict {
				return annotations, fmt.Errorf("line %d: %w", n, err)
			}
			br.logger.Warn("skipping malformed annotation", "line", n, "error", err)
			continue
		}
		annotations = append(annotations, a)
	}
	if err := scanner.Err(); err != nil {
		return annotations, err
	}
	return annotations, nil
}

// Write renders each annotation as one line to w.
func Write(w io.Writer, annotations ...Annotation) error {
	bw := bufio.NewWriter(w)
	for _, a := range annotations {
		if _, err := fmt.Fprintln(bw, a); err != nil {
			return err
		}
	}
	return bw.Flush()
}
