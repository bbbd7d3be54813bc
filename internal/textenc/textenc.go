// Package textenc decodes and encodes legacy character encodings, looked up
// by their IANA names, so the OTPL tools can process non-UTF-8 corpora.
package textenc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// NewReader wraps r so it yields UTF-8, decoding from the IANA-registered
// encoding name. An empty name, "UTF-8" or "UTF8" returns r unchanged.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewWriter wraps w so UTF-8 written to it is encoded into the named
// encoding. Closing the result flushes the encoder but leaves w open. An
// empty name, "UTF-8" or "UTF8" passes writes through unchanged.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nopCloser{w}, nil
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func lookup(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("textenc: unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("textenc: unsupported encoding %q", name)
	}
	return enc, nil
}
