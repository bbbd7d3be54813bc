package otplc

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ConvertFiles converts the otpl files belonging to every text file of the
// configuration into brat annotation files, isolating per-file failures,
// and returns the number of failed conversions.
//
// Without a configured colspec the specification is guessed from the first
// otpl file and reused for the rest. After a run without errors a brat
// annotation.conf is written next to the last text file, unless one already
// exists there.
func ConvertFiles(cfg *Config) int {
	if len(cfg.Files) == 0 {
		return 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	converter := NewConverter(cfg.Colspec,
		WithNameLabels(cfg.NameLabels),
		WithEncoding(cfg.Encoding),
		WithConverterLogger(logger))
	errors := 0

	for _, textFile := range cfg.Files {
		otplFile := makePathTo(textFile, cfg.OtplSuffix)
		bratFile := makePathTo(textFile, cfg.BratSuffix)

		if _, err := os.Stat(otplFile); err != nil {
			logger.Error("could not locate otpl file", "otpl", otplFile, "text", textFile)
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
			converter.SetColspec(cfg.Colspec)
		}

		if err := converter.Convert(reader, textFile, bratFile); err != nil {
			logger.Error("conversion failed", "text", textFile, "error", err)
			errors++
		}
	}

	if errors == 0 {
		confFile := filepath.Join(filepath.Dir(cfg.Files[len(cfg.Files)-1]), cfg.ConfigName)

		if _, err := os.Stat(confFile); os.IsNotExist(err) {
			if err := converter.WriteConfig(confFile); err != nil {
				logger.Error("cannot write annotation config", "path", confFile, "error", err)
			}
		}
	}
	return errors
}

// makePathTo replaces the path's extension with suffix.
func makePathTo(path, suffix string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix
}
