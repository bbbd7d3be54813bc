// Command otpl2brat converts one-token-per-line annotation files into brat
// standoff annotation files for the given plain-text files.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/fnl/otplc"
)

func main() {
	var (
		colspec    = pflag.StringP("colspec", "c", "", "column specification header (guessed when omitted)")
		separator  = pflag.StringP("separator", "s", "", "field separator pattern (auto-detected when omitted)")
		filter     = pflag.StringP("filter", "f", "", "pattern for input lines to skip")
		encoding   = pflag.StringP("encoding", "e", otplc.DefaultEncoding, "character encoding of all files")
		otplSuffix = pflag.String("otpl-suffix", otplc.DefaultOtplSuffix, "suffix of the annotation input files")
		bratSuffix = pflag.String("brat-suffix", otplc.DefaultBratSuffix, "suffix of the brat output files")
		confName   = pflag.String("config", otplc.DefaultConfigName, "name of the brat annotation configuration file")
		labels     = pflag.String("labels", "", "YAML file remapping annotation names for brat")
		visual     = pflag.String("visual", "", "brat visual.conf to derive the name remapping from")
		verbose    = pflag.BoolP("verbose", "v", false, "log debug messages")
		quiet      = pflag.BoolP("quiet", "q", false, "log errors only")
	)
	pflag.Parse()

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: otpl2brat [OPTIONS] TEXT_FILE...")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	logger := newLogger(*verbose, *quiet)
	slog.SetDefault(logger)

	cfg, err := otplc.DefaultConfig(pflag.Args()...)
	if err != nil {
		fatal(logger, err)
	}
	cfg.OtplSuffix = *otplSuffix
	cfg.BratSuffix = *bratSuffix
	cfg.ConfigName = *confName
	cfg.Encoding = *encoding
	cfg.Filter = *filter
	cfg.Separator = *separator
	cfg.Logger = logger

	if *colspec != "" {
		if cfg.Colspec, err = otplc.ColumnSpecFromHeader(*colspec); err != nil {
			fatal(logger, err)
		}
	}

	switch {
	case *labels != "":
		if cfg.NameLabels, err = otplc.LoadNameLabels(*labels); err != nil {
			fatal(logger, err)
		}
	case *visual != "":
		f, err := os.Open(*visual)
		if err != nil {
			fatal(logger, err)
		}
		cfg.NameLabels, err = otplc.ParseVisualConf(f)
		f.Close()
		if err != nil {
			fatal(logger, err)
		}
	}

	if errors := otplc.ConvertFiles(cfg); errors > 0 {
		os.Exit(min(errors, 125))
	}
}

func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func fatal(logger *slog.Logger, err error) {
	logger.Error(err.Error())
	os.Exit(1)
}
