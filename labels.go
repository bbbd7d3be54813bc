package otplc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadNameLabels reads a YAML mapping of annotation names to brat-safe
// replacement names for Config.NameLabels.
func LoadNameLabels(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string)
	if err := yaml.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("otplc: name labels %s: %w", path, err)
	}
	return labels, nil
}

// ParseVisualConf extracts the name mapping from the labels section of a
// brat visual.conf: each line there reads "BratName | Display Name | ...",
// and the returned map translates the first display name back to the brat
// name, the direction the converter needs.
func ParseVisualConf(r io.Reader) (map[string]string, error) {
	labels := make(map[string]string)
	inSection := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			inSection = line == "[labels]"
			continue
		case !inSection:
			continue
		}

		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimSpace(fields[0])
		display := strings.TrimSpace(fields[1])
		if name != "" && display != "" {
			labels[display] = name
		}
	}
	return labels, scanner.Err()
}
