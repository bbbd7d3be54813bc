// Package brat implements the brat standoff annotation line format: typed
// annotation records, one per line, each carrying a unique identifier whose
// first byte encodes the annotation kind.
//
// Every record kind serializes with String and parses back with Parse;
// parse(serialize(x)) reproduces x for structurally valid records.
package brat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sentinel errors returned by the parser.
var (
	// ErrFormat indicates a line that does not follow its kind's grammar.
	ErrFormat = errors.New("brat: malformed annotation line")

	// ErrUnknownType indicates a line whose leading byte matches no kind.
	ErrUnknownType = errors.New("brat: unknown annotation type")
)

// Annotation is any standoff record. All records expose their unique
// identifier and serialize to exactly one line (without the terminator).
type Annotation interface {
	// ID returns the record's unique identifier, such as "T1" or "R3".
	ID() string
	// String renders the record's standoff line.
	String() string
}

// Entity is a text-bound annotation: a typed character span of the
// annotated text.
//
//	T1<TAB>Protein 48 53<TAB>BMP-6
type Entity struct {
	UID   string
	Name  string
	Start int // character offset, inclusive
	End   int // character offset, exclusive
	Text  string
}

// ID implements Annotation.
func (e Entity) ID() string { return e.UID }

func (e Entity) String() string {
	return fmt.Sprintf("%s\t%s %d %d\t%s", e.UID, e.Name, e.Start, e.End, e.Text)
}

// Relation is a binary, directed association between two annotations.
//
//	R1<TAB>Regulation Arg1:T1 Arg2:T2
type Relation struct {
	UID  string
	Name string
	Arg1 string
	Arg2 string
}

// ID implements Annotation.
func (r Relation) ID() string { return r.UID }

func (r Relation) String() string {
	return fmt.Sprintf("%s\t%s Arg1:%s Arg2:%s", r.UID, r.Name, r.Arg1, r.Arg2)
}

// Arg is one named event argument.
type Arg struct {
	Name   string
	Target string
}

// Event is an n-ary association anchored by a trigger annotation, with an
// ordered (possibly empty) argument list.
//
//	E1<TAB>Binding:T3 Arg1:T1 Arg2:T2
type Event struct {
	UID     string
	Name    string
	Trigger string
	Args    []Arg
}

// ID implements Annotation.
func (e Event) ID() string { return e.UID }

func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s:%s", e.UID, e.Name, e.Trigger)
	for _, a := range e.Args {
		fmt.Fprintf(&b, " %s:%s", a.Name, a.Target)
	}
	return b.String()
}

// Normalization links an annotation to an entry of an external database.
// Its type name is always "Reference".
//
//	N1<TAB>Reference T1 GO:0005515<TAB>protein binding
type Normalization struct {
	UID    string
	Target string
	DB     string
	Xref   string
	Text   string
}

// ID implements Annotation.
func (n Normalization) ID() string { return n.UID }

func (n Normalization) String() string {
	return fmt.Sprintf("%s\tReference %s %s:%s\t%s", n.UID, n.Target, n.DB, n.Xref, n.Text)
}

// Attribute marks an annotation with a flag or a valued modifier.
//
//	A1<TAB>Negation E1
//	A2<TAB>Confidence E2 high
type Attribute struct {
	UID      string
	Name     string
	Target   string
	Modifier string // empty for binary attributes
}

// ID implements Annotation.
func (a Attribute) ID() string { return a.UID }

func (a Attribute) String() string {
	if a.Modifier == "" {
		return fmt.Sprintf("%s\t%s %s", a.UID, a.Name, a.Target)
	}
	return fmt.Sprintf("%s\t%s %s %s", a.UID, a.Name, a.Target, a.Modifier)
}

// Note is a free-text comment attached to another annotation.
//
//	#1<TAB>AnnotatorNotes T1<TAB>check this span
type Note struct {
	UID    string
	Name   string
	Target string
	Text   string
}

// ID implements Annotation.
func (n Note) ID() string { return n.UID }

func (n Note) String() string {
	return fmt.Sprintf("%s\t%s %s\t%s", n.UID, n.Name, n.Target, n.Text)
}

// Equiv declares a set of annotations as equivalent.
//
//	*<TAB>Equiv T1 T2 T3
type Equiv struct {
	UID     string
	Name    string
	Targets []string
}

// ID implements Annotation.
func (e Equiv) ID() string { return e.UID }

func (e Equiv) String() string {
	return fmt.Sprintf("%s\t%s %s", e.UID, e.Name, strings.Join(e.Targets, " "))
}

// Parse decodes one standoff line into its record, dispatching on the
// line's first byte: T, R, E, N, A (or legacy M), # and *.
func Parse(line string) (Annotation, error) {
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrFormat)
	}

	switch line[0] {
	case 'T':
		return parseEntity(line)
	case 'R':
		return parseRelation(line)
	case 'E':
		return parseEvent(line)
	case 'N':
		return parseNormalization(line)
	case 'A', 'M':
		return parseAttribute(line)
	case '#':
		return parseNote(line)
	case '*':
		return parseEquiv(line)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, line[0])
}

// splitHead cuts the line into uid, type name and the remainder after the
// first space; the remainder is empty for lines ending at the type name,
// such as an argument-less event.
func splitHead(line string) (uid, name, rest string, err error) {
	uid, rest, ok := strings.Cut(line, "\t")
	if !ok {
		return "", "", "", fmt.Errorf("%w: missing tab: %q", ErrFormat, line)
	}
	name, rest, _ = strings.Cut(rest, " ")
	return uid, name, rest, nil
}

func parseEntity(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}

	offsets, text, ok := strings.Cut(rest, "\t")
	if !ok {
		return nil, fmt.Errorf("%w: entity without text: %q", ErrFormat, line)
	}
	first, second, ok := strings.Cut(offsets, " ")
	if !ok {
		return nil, fmt.Errorf("%w: entity offsets: %q", ErrFormat, line)
	}

	start, err := strconv.Atoi(first)
	if err != nil {
		return nil, fmt.Errorf("%w: entity start: %q", ErrFormat, line)
	}
	end, err := strconv.Atoi(second)
	if err != nil {
		return nil, fmt.Errorf("%w: entity end: %q", ErrFormat, line)
	}
	if utf8.RuneCountInString(text) != end-start {
		return nil, fmt.Errorf("%w: text and offsets mismatch: %q", ErrFormat, line)
	}

	return Entity{UID: uid, Name: name, Start: start, End: end, Text: text}, nil
}

func parseRelation(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}

	args := strings.Split(rest, " ")
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: relation needs two args: %q", ErrFormat, line)
	}

	// argument prefixes are normalized away; Arg1/Arg2 are implied by order
	return Relation{
		UID:  uid,
		Name: name,
		Arg1: stripArgPrefix(args[0]),
		Arg2: stripArgPrefix(args[1]),
	}, nil
}

func stripArgPrefix(arg string) string {
	if _, target, ok := strings.Cut(arg, ":"); ok {
		return target
	}
	return arg
}

func parseEvent(line string) (Annotation, error) {
	uid, named, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}

	name, trigger, ok := strings.Cut(named, ":")
	if !ok {
		return nil, fmt.Errorf("%w: event without trigger: %q", ErrFormat, line)
	}

	var args []Arg
	for _, field := range strings.Fields(rest) {
		argName, target, ok := strings.Cut(field, ":")
		if !ok {
			return nil, fmt.Errorf("%w: event argument %q: %q", ErrFormat, field, line)
		}
		args = append(args, Arg{Name: argName, Target: target})
	}

	return Event{UID: uid, Name: name, Trigger: trigger, Args: args}, nil
}

func parseNormalization(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}
	if name != "Reference" {
		return nil, fmt.Errorf("%w: illegal normalization name %q", ErrFormat, name)
	}

	targetRef, text, ok := strings.Cut(rest, "\t")
	if !ok {
		return nil, fmt.Errorf("%w: normalization without text: %q", ErrFormat, line)
	}
	target, xref, ok := strings.Cut(targetRef, " ")
	if !ok {
		return nil, fmt.Errorf("%w: normalization target: %q", ErrFormat, line)
	}
	db, id, ok := strings.Cut(xref, ":")
	if !ok {
		return nil, fmt.Errorf("%w: normalization xref: %q", ErrFormat, line)
	}

	return Normalization{UID: uid, Target: target, DB: db, Xref: id, Text: text}, nil
}

func parseAttribute(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}

	target, modifier, _ := strings.Cut(rest, " ")
	return Attribute{UID: uid, Name: name, Target: target, Modifier: modifier}, nil
}

func parseNote(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}

	target, text, ok := strings.Cut(rest, "\t")
	if !ok {
		return nil, fmt.Errorf("%w: note without text: %q", ErrFormat, line)
	}
	return Note{UID: uid, Name: name, Target: target, Text: text}, nil
}

func parseEquiv(line string) (Annotation, error) {
	uid, name, rest, err := splitHead(line)
	if err != nil {
		return nil, err
	}
	return Equiv{UID: uid, Name: name, Targets: strings.Fields(rest)}, nil
}
