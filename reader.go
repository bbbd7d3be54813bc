package otplc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"

	"github.com/fnl/otplc/internal/textenc"
)

// Separator patterns the reader can auto-detect.
var (
	sepTab    = regexp.MustCompile(`\t`)
	sepSpaces = regexp.MustCompile(`\s+`)
)

// Reader streams an OTPL file as segments of equal-width rows. A segment is
// the block of rows between blank lines; a row is the list of fields a line
// splits into. Construct one with NewReader, then either set a separator
// pattern or let DetectSeparator choose between tabs and whitespace runs.
//
// A Reader holds no open file; every call to Segments (re-)opens the path,
// so the same Reader can be iterated multiple times.
type Reader struct {
	path     string
	encoding string
	sep      *regexp.Regexp
	filter   *regexp.Regexp
	logger   *slog.Logger
}

// NewReader creates a reader for the OTPL file at path, expecting UTF-8.
func NewReader(path string) *Reader {
	return &Reader{path: path, logger: slog.Default()}
}

// ConfigureReader builds a reader from a batch configuration, applying its
// filter, encoding and separator settings; without an explicit separator the
// field separator is auto-detected. Detection failure is an error: the
// caller must then supply a separator.
func ConfigureReader(path string, cfg *Config) (*Reader, error) {
	r := NewReader(path)
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	}
	r.encoding = cfg.Encoding

	if cfg.Filter != "" {
		if err := r.SetFilter(cfg.Filter); err != nil {
			return nil, err
		}
	}

	if cfg.Separator != "" {
		if err := r.SetSeparator(cfg.Separator); err != nil {
			return nil, err
		}
		return r, nil
	}

	if err := r.DetectSeparator(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the OTPL file path of this reader.
func (r *Reader) Path() string { return r.path }

// SetSeparator compiles and sets the field separator pattern.
func (r *Reader) SetSeparator(pattern string) error {
	sep, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: separator %q: %v", ErrFormat, pattern, err)
	}
	r.logger.Info("separator set", "pattern", pattern)
	r.sep = sep
	return nil
}

// Separator returns the current separator pattern, or "" if none is set.
func (r *Reader) Separator() string {
	if r.sep == nil {
		return ""
	}
	return r.sep.String()
}

// SetFilter compiles and sets the line filter; lines matching the pattern
// are skipped entirely and do not count toward the column-width check.
func (r *Reader) SetFilter(pattern string) error {
	filter, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: filter %q: %v", ErrFormat, pattern, err)
	}
	r.logger.Info("filter set", "pattern", pattern)
	r.filter = filter
	return nil
}

// SetEncoding declares the IANA name of the file's character encoding.
// An empty name or "UTF-8" means no transcoding.
func (r *Reader) SetEncoding(name string) { r.encoding = name }

// DetectSeparator guesses the field separator, /\t/ or /\s+/, from the first
// ten non-filtered, non-empty lines. A separator is chosen when it yields a
// stable field count greater than one across the sampled lines; when both
// candidates are stable, tabs win unless they produce fewer fields than
// whitespace runs. Returns ErrNoSeparator when no decision can be made.
func (r *Reader) DetectSeparator() error {
	spacesFields, tabFields, err := r.countFields()
	if err != nil {
		return err
	}

	if len(spacesFields) == 0 && len(tabFields) == 0 {
		r.logger.Warn("file is empty or all lines were filtered", "path", r.path)
	}

	sep := chooseSeparator(spacesFields, tabFields)
	if sep == nil {
		r.logger.Warn("no stable column count", "path", r.path)
		return fmt.Errorf("%w: %s", ErrNoSeparator, r.path)
	}

	r.sep = sep
	return nil
}

// countFields tallies how often each field count occurs when splitting the
// sampled lines by tabs and by whitespace runs.
func (r *Reader) countFields() (spacesFields, tabFields map[int]int, err error) {
	spacesFields = make(map[int]int)
	tabFields = make(map[int]int)

	lines, err := r.open()
	if err != nil {
		return nil, nil, err
	}
	defer lines.close()

	count := 0
	for lines.scan() {
		line := lines.text()
		if line == "" || r.filtered(line) {
			continue
		}

		spacesFields[len(sepSpaces.Split(line, -1))]++
		tabFields[len(sepTab.Split(line, -1))]++
		count++

		if count > 9 || (len(spacesFields) > 1 && len(tabFields) > 1) {
			break
		}
	}

	return spacesFields, tabFields, lines.err()
}

// chooseSeparator picks a separator given the observed field-count tallies,
// preferring the stable one, and tabs on a tie with more fields.
func chooseSeparator(spacesFields, tabFields map[int]int) *regexp.Regexp {
	switch {
	case len(spacesFields) == 1 && len(tabFields) != 1:
		if onlyFieldCount(spacesFields) > 1 {
			return sepSpaces
		}
	case len(tabFields) == 1 && len(spacesFields) != 1:
		if onlyFieldCount(tabFields) > 1 {
			return sepTab
		}
	case len(tabFields) == 1 && len(spacesFields) == 1:
		tab, spaces := onlyFieldCount(tabFields), onlyFieldCount(spacesFields)
		if tab == 1 && spaces == 1 {
			return nil
		}
		if tab >= spaces {
			return sepTab
		}
		return sepSpaces
	}
	return nil
}

func onlyFieldCount(fields map[int]int) int {
	for n := range fields {
		return n
	}
	return 0
}

func (r *Reader) filtered(line string) bool {
	return r.filter != nil && r.filter.FindStringIndex(line) != nil
}

// Segments opens the file and returns a scanner over its segments.
// The separator must have been set or detected beforehand.
func (r *Reader) Segments() (*SegmentScanner, error) {
	if r.sep == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSeparator, r.path)
	}

	lines, err := r.open()
	if err != nil {
		return nil, err
	}

	return &SegmentScanner{reader: r, lines: lines}, nil
}

// SegmentScanner iterates the segments of one pass over an OTPL file, in
// the style of bufio.Scanner:
//
//	segs, err := reader.Segments()
//	for segs.Scan() {
//	    use(segs.Segment())
//	}
//	err = segs.Err()
type SegmentScanner struct {
	reader  *Reader
	lines   *lineScanner
	segment [][]string
	width   int // field count established by the file's first data row
	lno     int
	err     error
	done    bool
}

// Scan advances to the next non-empty segment. It returns false at EOF or
// on the first error; check Err afterwards.
func (s *SegmentScanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}

	s.segment = nil
	for s.lines.scan() {
		s.lno++
		line := s.lines.text()

		switch {
		case line == "":
			if len(s.segment) > 0 {
				return true
			}
		case s.reader.filtered(line):
			// skipped lines neither extend nor close the segment
		default:
			fields := s.reader.sep.Split(line, -1)
			if s.width != 0 && len(fields) != s.width {
				s.err = fmt.Errorf("%w: line %d has %d columns, but expected %d",
					ErrFormat, s.lno, len(fields), s.width)
				s.close()
				return false
			}
			if s.width == 0 {
				s.width = len(fields)
			}
			s.segment = append(s.segment, fields)
		}
	}

	s.err = s.lines.err()
	s.close()
	return len(s.segment) > 0 && s.err == nil
}

// Segment returns the rows of the current segment. The slice is only valid
// until the next call to Scan.
func (s *SegmentScanner) Segment() [][]string { return s.segment }

// Err returns the first error encountered while scanning, if any.
func (s *SegmentScanner) Err() error { return s.err }

// Close releases the underlying file. Scanning to EOF closes it as well.
func (s *SegmentScanner) Close() error { return s.close() }

func (s *SegmentScanner) close() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.lines.close()
}

// lineScanner reads lines accepting \n, \r\n and bare \r terminators, and
// transcodes the input when an encoding is configured.
type lineScanner struct {
	file    *os.File
	scanner *bufio.Scanner
}

func (r *Reader) open() (*lineScanner, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}

	var src io.Reader = file
	if src, err = textenc.NewReader(file, r.encoding); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanAnyLine)
	return &lineScanner{file: file, scanner: scanner}, nil
}

func (l *lineScanner) scan() bool   { return l.scanner.Scan() }
func (l *lineScanner) text() string { return l.scanner.Text() }
func (l *lineScanner) err() error   { return l.scanner.Err() }
func (l *lineScanner) close() error { return l.file.Close() }

// scanAnyLine is a bufio.SplitFunc terminating lines at \n, \r\n or \r.
func scanAnyLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					advance++
				}
			} else if !atEOF {
				// cannot tell yet whether a \n follows the \r
				return 0, nil, nil
			}
		}
		return advance, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
