package otplc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fnl/otplc/internal/textenc"
)

// ExtractText reconstructs a plain-text file from the token column of each
// otpl file in the configuration, joining tokens with single spaces and
// writing one segment per line, and returns the number of failures.
//
// The output paths derive from the otpl paths by suffix replacement; an
// otpl file that would be overwritten by its own text file is an error.
func ExtractText(cfg *Config) int {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errors := 0

	for _, otplFile := range cfg.Files {
		textFile := makePathTo(otplFile, cfg.TextSuffix)
		if textFile == otplFile {
			logger.Error("output text file and input otpl file have the same path",
				"path", otplFile, "suffix", cfg.TextSuffix)
			errors++
			continue
		}

		reader, err := ConfigureReader(otplFile, cfg)
		if err != nil {
			logger.Error("cannot read otpl file", "otpl", otplFile, "error", err)
			errors++
			continue
		}

		if cfg.Colspec == nil {
			cfg.Colspec, err = GuessColspec(reader)
			if err != nil {
				logger.Error("cannot guess a colspec", "otpl", otplFile, "error", err)
				errors++
				continue
			}
		}

		if err := extractTokens(reader, textFile, cfg.Colspec.Token(), cfg.Encoding); err != nil {
			logger.Error("text extraction failed", "otpl", otplFile, "text", textFile, "error", err)
			errors++
		}
	}
	return errors
}

func extractTokens(r *Reader, textFile string, tokenCol int, encoding string) error {
	segments, err := r.Segments()
	if err != nil {
		return err
	}
	defer segments.Close()

	f, err := os.Create(textFile)
	if err != nil {
		return err
	}

	enc, err := textenc.NewWriter(f, encoding)
	if err != nil {
		f.Close()
		return err
	}
	w := bufio.NewWriter(enc)

	for segments.Scan() {
		seg := segments.Segment()
		tokens := make([]string, len(seg))
		for idx, row := range seg {
			tokens[idx] = row[tokenCol]
		}
		fmt.Fprintln(w, strings.Join(tokens, " "))
	}

	err = segments.Err()
	if err == nil {
		err = w.Flush()
	}
	if closeErr := enc.Close(); err == nil {
		err = closeErr
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// SplitSegments splits an otpl file into smaller ones holding at most
// factor segments each, named base-N.ext after the input path, and returns
// the paths of the files written.
func SplitSegments(path string, factor int, encoding string) ([]string, error) {
	if factor < 1 {
		return nil, fmt.Errorf("otplc: split factor %d out of range", factor)
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	dec, err := textenc.NewReader(in, encoding)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	var names []string

	out, err := newSegmentFile(base, 0, ext, encoding, &names)
	if err != nil {
		return nil, err
	}
	segments, empty := 0, true

	scanner := bufio.NewScanner(dec)
	scanner.Split(scanAnyLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fmt.Fprintln(out.w, line)
		empty = false

		if line == "" {
			segments++
			if segments == factor {
				if err := out.close(); err != nil {
					return names, err
				}
				if out, err = newSegmentFile(base, len(names), ext, encoding, &names); err != nil {
					return names, err
				}
				segments, empty = 0, true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		out.close()
		return names, err
	}
	if err := out.close(); err != nil {
		return names, err
	}

	// drop a trailing chunk that received no lines at all
	if empty && len(names) > 1 {
		last := names[len(names)-1]
		names = names[:len(names)-1]
		if err := os.Remove(last); err != nil {
			return names, err
		}
	}
	return names, nil
}

type segmentFile struct {
	f   *os.File
	enc io.WriteCloser
	w   *bufio.Writer
}

func newSegmentFile(base string, id int, ext, encoding string, names *[]string) (*segmentFile, error) {
	name := fmt.Sprintf("%s-%d%s", base, id, ext)
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}

	enc, err := textenc.NewWriter(f, encoding)
	if err != nil {
		f.Close()
		return nil, err
	}
	*names = append(*names, name)
	return &segmentFile{f: f, enc: enc, w: bufio.NewWriter(enc)}, nil
}

func (s *segmentFile) close() error {
	err := s.w.Flush()
	if closeErr := s.enc.Close(); err == nil {
		err = closeErr
	}
	if closeErr := s.f.Close(); err == nil {
		err = closeErr
	}
	return err
}
