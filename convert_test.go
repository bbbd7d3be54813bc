package otplc

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// batchFixture writes a text/otpl file pair named sample into a temporary
// directory and returns a ready-to-run configuration for it.
func batchFixture(t *testing.T, text, otpl string) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	textFile := filepath.Join(dir, "sample.txt")

	if err := os.WriteFile(textFile, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	if otpl != "" {
		if err := os.WriteFile(filepath.Join(dir, "sample.lst"), []byte(otpl), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := DefaultConfig(textFile)
	if err != nil {
		t.Fatalf("DefaultConfig() error = %v", err)
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg, dir
}

func TestConvertFiles(t *testing.T) {
	cfg, dir := batchFixture(t, "tok1 tok2\n", "tok1 NN\ntok2 VB\n\n")

	if failed := ConvertFiles(cfg); failed != 0 {
		t.Fatalf("ConvertFiles() = %d, want 0", failed)
	}

	got := readLines(t, filepath.Join(dir, "sample.ann"))
	want := []string{
		"T1\tNN 0 4\ttok1",
		"T2\tVB 5 9\ttok2",
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}

	conf, err := os.ReadFile(filepath.Join(dir, DefaultConfigName))
	if err != nil {
		t.Fatalf("annotation config not written: %v", err)
	}
	for _, name := range []string{"[entities]", "NN", "VB"} {
		if !strings.Contains(string(conf), name) {
			t.Errorf("annotation config lacks %q:\n%s", name, conf)
		}
	}
}

func TestConvertFilesIsolatesFailures(t *testing.T) {
	// one file with an unmatched token fails alone; its sibling still converts
	dir := t.TempDir()
	badText := filepath.Join(dir, "bad.txt")
	goodText := filepath.Join(dir, "good.txt")
	files := map[string]string{
		badText:                        "tok1 tok2\n",
		filepath.Join(dir, "bad.lst"):  "tokX NN\ntok2 VB\n\n",
		goodText:                       "tok1 tok2\n",
		filepath.Join(dir, "good.lst"): "tok1 NN\ntok2 VB\n\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := DefaultConfig(badText, goodText)
	if err != nil {
		t.Fatalf("DefaultConfig() error = %v", err)
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	if failed := ConvertFiles(cfg); failed != 1 {
		t.Fatalf("ConvertFiles() = %d, want 1", failed)
	}

	got := readLines(t, filepath.Join(dir, "good.ann"))
	want := []string{
		"T1\tNN 0 4\ttok1",
		"T2\tVB 5 9\ttok2",
	}
	for idx, line := range want {
		if got[idx] != line {
			t.Errorf("line %d = %q, want %q", idx+1, got[idx], line)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigName)); !os.IsNotExist(err) {
		t.Errorf("annotation config written despite errors")
	}
}

func TestConvertFilesNoInputs(t *testing.T) {
	if failed := ConvertFiles(&Config{}); failed != 0 {
		t.Fatalf("ConvertFiles() = %d, want 0", failed)
	}
}

func TestConvertFilesMissingOtpl(t *testing.T) {
	cfg, dir := batchFixture(t, "tok1 tok2\n", "")

	if failed := ConvertFiles(cfg); failed != 1 {
		t.Fatalf("ConvertFiles() = %d, want 1", failed)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigName)); !os.IsNotExist(err) {
		t.Errorf("annotation config written despite errors")
	}
}

func TestConvertFilesKeepsExistingConfig(t *testing.T) {
	cfg, dir := batchFixture(t, "tok1 tok2\n", "tok1 NN\ntok2 VB\n\n")
	confFile := filepath.Join(dir, DefaultConfigName)
	if err := os.WriteFile(confFile, []byte("# curated\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if failed := ConvertFiles(cfg); failed != 0 {
		t.Fatalf("ConvertFiles() = %d, want 0", failed)
	}
	raw, err := os.ReadFile(confFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "# curated\n" {
		t.Errorf("existing annotation config was overwritten:\n%s", raw)
	}
}
