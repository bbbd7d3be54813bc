package otplc

import (
	"fmt"
	"log/slog"
	"os"
)

// Defaults for the batch conversion configuration.
const (
	DefaultOtplSuffix = ".lst"
	DefaultBratSuffix = ".ann"
	DefaultTextSuffix = ".txt"
	DefaultConfigName = "annotation.conf"
	DefaultEncoding   = "UTF-8"
)

// Config carries all settings for a batch conversion run; build one with
// DefaultConfig and adjust fields as needed.
type Config struct {
	// Files are the input files: the annotated plain-text files for
	// ConvertFiles, or the otpl files for ExtractText. Derived paths use
	// suffix replacement on these.
	Files []string

	OtplSuffix string
	BratSuffix string
	TextSuffix string

	// ConfigName is the file name for the brat annotation configuration,
	// written next to the last text file after an error-free run.
	ConfigName string

	// Encoding is the IANA name of the character encoding of all files.
	Encoding string

	// Filter is a pattern for lines to skip in otpl files, or empty.
	Filter string

	// Separator is the field separator pattern for otpl files; when empty
	// it is auto-detected per file.
	Separator string

	// Colspec is the column specification of the otpl files; when nil it
	// is guessed from the first file and reused for the rest.
	Colspec *ColumnSpec

	// NameLabels remaps annotation names that brat would reject.
	NameLabels map[string]string

	Logger *slog.Logger
}

// DefaultConfig creates a configuration with default settings for the
// given input files; every file must exist.
func DefaultConfig(files ...string) (*Config, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("otplc: no input files")
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("otplc: input file: %w", err)
		}
	}

	return &Config{
		Files:      files,
		OtplSuffix: DefaultOtplSuffix,
		BratSuffix: DefaultBratSuffix,
		TextSuffix: DefaultTextSuffix,
		ConfigName: DefaultConfigName,
		Encoding:   DefaultEncoding,
		Logger:     slog.Default(),
	}, nil
}
