package otplc

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/fnl/otplc/internal/textenc"
)

// normalizationLine documents a normalization database name in the config
// file; the actual database setup belongs into brat's tools.conf.
const normalizationLine = "# %s\t<URL>:http://example.com/, <URLBASE>:http://example.com/%%s\n"

// WriteConfig writes a rudimentary brat annotation.conf to path, listing
// every annotation type name encountered by the conversions so far.
func (c *Converter) WriteConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc, err := textenc.NewWriter(f, c.encoding)
	if err != nil {
		f.Close()
		return err
	}
	w := bufio.NewWriter(enc)

	err = c.writeConfig(w)
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

func (c *Converter) writeConfig(w *bufio.Writer) error {
	if len(c.entities) > 0 {
		fmt.Fprintf(w, "\n[entities]\n\n")
		for _, name := range slices.Sorted(maps.Keys(c.entities)) {
			fmt.Fprintf(w, "%s\n", name)
		}
	}

	if len(c.relations) > 0 {
		fmt.Fprintf(w, "\n[relations]\n\n")
		for _, name := range slices.Sorted(maps.Keys(c.relations)) {
			if err := c.writeRelationType(w, name); err != nil {
				return err
			}
		}
	}

	if len(c.events) > 0 {
		fmt.Fprintf(w, "\n[events]\n\n")
		for _, name := range slices.Sorted(maps.Keys(c.events)) {
			if err := c.writeEventType(w, name); err != nil {
				return err
			}
		}
	}

	if len(c.attributes) > 0 {
		fmt.Fprintf(w, "\n[attributes]\n\n")
		for _, name := range slices.Sorted(maps.Keys(c.attributes)) {
			if err := c.writeAttributeType(w, name); err != nil {
				return err
			}
		}
	}

	if len(c.normalizations) > 0 {
		c.writeDatabaseNames(w)
	}
	return nil
}

func (c *Converter) writeRelationType(w *bufio.Writer, name string) error {
	cols := slices.Sorted(maps.Keys(c.relations[name]))

	arg1, err := c.elicitShortcut(cols, c.colspec.RelationSource)
	if err != nil {
		return err
	}
	arg2, err := c.elicitShortcut(cols, func(col int) int {
		return c.colspec.ReferenceTarget(col - 1)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\tArg1:%s, Arg2:%s\n", name, arg1, arg2)
	return nil
}

func (c *Converter) writeEventType(w *bufio.Writer, name string) error {
	arguments := make([]string, 0, len(c.events[name]))

	for _, arg := range c.events[name] {
		shortcut, err := c.elicitShortcut([]int{arg.col}, c.colspec.ReferenceTarget)
		if err != nil {
			return err
		}
		optional := ""
		if !arg.required {
			optional = "?"
		}
		arguments = append(arguments, fmt.Sprintf("Col%d%s:%s", arg.col+1, optional, shortcut))
	}

	fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(arguments, ", "))
	return nil
}

func (c *Converter) writeAttributeType(w *bufio.Writer, name string) error {
	use := c.attributes[name]
	cols := slices.Sorted(maps.Keys(use.columns))

	shortcut, err := c.elicitShortcut(cols, c.colspec.AttributeTarget)
	if err != nil {
		return err
	}

	values := ""
	if len(use.modifiers) > 1 {
		var modifiers []string
		for _, m := range slices.Sorted(maps.Keys(use.modifiers)) {
			if m != "" {
				modifiers = append(modifiers, m)
			}
		}
		values = ", Value:" + strings.Join(modifiers, "|")
	}

	fmt.Fprintf(w, "%s\tArg:%s%s\n", name, shortcut, values)
	return nil
}

func (c *Converter) writeDatabaseNames(w *bufio.Writer) {
	fmt.Fprintf(w, "\n# [normalization]\n")

	for _, name := range slices.Sorted(maps.Keys(c.normalizations)) {
		if _, err := c.validateName(name); err != nil {
			c.logger.Warn("database name has illegal characters", "name", name)
			fmt.Fprintf(w, "# %s\n", name)
			continue
		}
		fmt.Fprintf(w, normalizationLine, name)
	}
}

// elicitShortcut picks the config file shortcut for the targets of the
// given annotation columns: the target role when all columns agree on one,
// <ANY> otherwise.
func (c *Converter) elicitShortcut(cols []int, target func(int) int) (string, error) {
	role := Unknown

	for _, col := range cols {
		update, err := c.colspec.PropertyTargetRole(target(col))
		if err != nil {
			return "", err
		}
		if role == Unknown {
			role = update
		} else if role != update {
			role = Annotation
			break
		}
	}

	switch role {
	case Annotation:
		return "<ANY>", nil
	case PosTag, Entity:
		return "<ENTITY>", nil
	case Relation:
		return "<RELATION>", nil
	case Event:
		return "<EVENT>", nil
	}
	return "", fmt.Errorf("%w: illegal shortcut %s for columns %v", ErrInvalidTarget, role, cols)
}
