package textenc

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewReaderUTF8Passthrough(t *testing.T) {
	for _, name := range []string{"", "UTF-8", "UTF8", "utf-8"} {
		src := strings.NewReader("Florianʼs test")
		r, err := NewReader(src, name)
		if err != nil {
			t.Fatalf("NewReader(%q) error = %v", name, err)
		}

		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "Florianʼs test" {
			t.Errorf("NewReader(%q) read %q", name, got)
		}
	}
}

func TestNewReaderLatin1(t *testing.T) {
	r, err := NewReader(bytes.NewReader([]byte{0xe9, 0x74, 0xe9}), "ISO-8859-1")
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "été" {
		t.Errorf("NewReader() read %q, want %q", got, "été")
	}
}

func TestNewWriterLatin1(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "ISO-8859-1")
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	if _, err := io.WriteString(w, "été"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0xe9, 0x74, 0xe9}; !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("NewWriter() wrote % x, want % x", buf.Bytes(), want)
	}
}

func TestNewReaderUnknownEncoding(t *testing.T) {
	if _, err := NewReader(strings.NewReader(""), "no-such-encoding"); err == nil {
		t.Fatal("NewReader() error = nil, want an unknown encoding error")
	}
}
