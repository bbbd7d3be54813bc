// Command otpl2txt reconstructs plain-text files from the token column of
// one-token-per-line annotation files, or splits such files into smaller
// ones.
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
		textSuffix = pflag.String("text-suffix", otplc.DefaultTextSuffix, "suffix of the text output files")
		split      = pflag.Int("split", 0, "split the input into files of at most N segments instead")
		verbose    = pflag.BoolP("verbose", "v", false, "log debug messages")
		quiet      = pflag.BoolP("quiet", "q", false, "log errors only")
	)
	pflag.Parse()

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: otpl2txt [OPTIONS] OTPL_FILE...")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	} else if *quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *split > 0 {
		errors := 0
		for _, path := range pflag.Args() {
			names, err := otplc.SplitSegments(path, *split, *encoding)
			if err != nil {
				logger.Error("split failed", "path", path, "error", err)
				errors++
				continue
			}
			for _, name := range names {
				fmt.Println(name)
			}
		}
		if errors > 0 {
			os.Exit(min(errors, 125))
		}
		return
	}

	cfg, err := otplc.DefaultConfig(pflag.Args()...)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	cfg.TextSuffix = *textSuffix
	cfg.Encoding = *encoding
	cfg.Filter = *filter
	cfg.Separator = *separator
	cfg.Logger = logger

	if *colspec != "" {
		if cfg.Colspec, err = otplc.ColumnSpecFromHeader(*colspec); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
	}

	if errors := otplc.ExtractText(cfg); errors > 0 {
		os.Exit(min(errors, 125))
	}
}
