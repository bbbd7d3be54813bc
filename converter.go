package otplc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/fnl/otplc/brat"
	"github.com/fnl/otplc/internal/textenc"
)

// validName is the pattern every brat annotation name must follow; anything
// else is silently ignored by brat itself. Letters and digits from any
// script are acceptable to brat, not just ASCII.
var validName = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

// farTokenLimit is the forward-search distance beyond which a matched token
// is suspicious enough to warrant a warning.
const farTokenLimit = 1000

// Converter translates the standoff annotations of otpl files into brat
// annotation files, given the plain-text files both formats annotate.
//
// A single Converter may process many files in sequence; it accumulates the
// annotation type names it encounters so that WriteConfig can emit a brat
// annotation.conf covering all of them.
type Converter struct {
	colspec    *ColumnSpec
	nameLabels map[string]string
	encoding   string
	logger     *slog.Logger

	// names collected for the annotation.conf file
	entities       map[string]bool
	relations      map[string]map[int]bool
	events         map[string][]eventArg
	normalizations map[string]bool
	attributes     map[string]*attributeUse

	// per-file conversion state
	text        []rune
	out         *bufio.Writer
	counters    map[byte]int
	localMap    map[int]map[string]string
	globalMap   map[int]map[string]string
	globalCount int
	lineCount   int
}

// eventArg records one event argument column and whether every observed
// instance of the event filled it.
type eventArg struct {
	col      int
	required bool
}

type attributeUse struct {
	modifiers map[string]bool // "" for the binary form
	columns   map[int]bool
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithNameLabels remaps annotation names that brat would reject to valid
// replacements; the original names can be restored in the brat UI through
// the labels section of its visual.conf.
func WithNameLabels(labels map[string]string) ConverterOption {
	return func(c *Converter) { c.nameLabels = labels }
}

// WithEncoding sets the character encoding of the text and brat files.
func WithEncoding(name string) ConverterOption {
	return func(c *Converter) { c.encoding = name }
}

// WithConverterLogger routes the converter's diagnostics to logger.
func WithConverterLogger(logger *slog.Logger) ConverterOption {
	return func(c *Converter) { c.logger = logger }
}

// NewConverter creates a Converter for input files following colspec.
func NewConverter(colspec *ColumnSpec, opts ...ConverterOption) *Converter {
	c := &Converter{
		colspec:        colspec,
		logger:         slog.Default(),
		entities:       make(map[string]bool),
		relations:      make(map[string]map[int]bool),
		events:         make(map[string][]eventArg),
		normalizations: make(map[string]bool),
		attributes:     make(map[string]*attributeUse),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetColspec replaces the column specification used for conversion.
func (c *Converter) SetColspec(colspec *ColumnSpec) { c.colspec = colspec }

// Convert reads the otpl annotations from r and writes the brat annotation
// file for textFile, the plain-text file both annotate. Character offsets
// are counted in Unicode code points, as brat requires.
//
// If the colspec contains global references the input is read twice: once
// to create all text-bound annotations and once for the associations that
// may reference them across segment boundaries.
func (c *Converter) Convert(r *Reader, textFile, bratFile string) error {
	if c.colspec == nil {
		return ErrNoColspec
	}

	c.logger.Info("converting", "otpl", r.Path(), "brat", bratFile, "text", textFile)
	text, err := c.readText(textFile)
	if err != nil {
		return err
	}
	c.resetState(text)

	out, err := os.Create(bratFile)
	if err != nil {
		return err
	}
	c.out = bufio.NewWriter(out)

	if c.colspec.HasGlobalRefs() {
		err = c.convertWithGlobals(r)
	} else {
		err = c.convertLocal(r)
	}
	if err == nil {
		err = c.out.Flush()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (c *Converter) readText(path string) ([]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := textenc.NewReader(f, c.encoding)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	return []rune(string(raw)), nil
}

func (c *Converter) resetState(text []rune) {
	c.text = text
	c.counters = make(map[byte]int)
	c.localMap = make(map[int]map[string]string)
	c.globalMap = nil
	c.globalCount = 0
	c.lineCount = 1
}

func (c *Converter) convertLocal(r *Reader) error {
	segments, err := r.Segments()
	if err != nil {
		return err
	}
	defer segments.Close()
	offset := 0

	for segments.Scan() {
		seg := segments.Segment()
		if _, offset, err = c.convertTokensAndEntities(seg, offset); err != nil {
			return err
		}
		if err = c.convertAnnotations(seg); err != nil {
			return err
		}
		c.advance(len(seg))
	}
	return segments.Err()
}

// convertWithGlobals runs two passes: the first creates every text-bound
// annotation in the file, the second the associations, so that a global
// reference can point past the end of its own segment.
func (c *Converter) convertWithGlobals(r *Reader) error {
	c.globalMap = make(map[int]map[string]string)
	var localMaps []map[int]map[string]string
	offset := 0

	segments, err := r.Segments()
	if err != nil {
		return err
	}
	for segments.Scan() {
		seg := segments.Segment()
		lmap, next, err := c.convertTokensAndEntities(seg, offset)
		if err != nil {
			segments.Close()
			return err
		}
		offset = next
		localMaps = append(localMaps, lmap)
		c.advance(len(seg))
	}
	if err = segments.Err(); err != nil {
		segments.Close()
		return err
	}
	segments.Close()

	c.globalCount = 0
	c.lineCount = 1

	segments, err = r.Segments()
	if err != nil {
		return err
	}
	defer segments.Close()

	for idx := 0; segments.Scan(); idx++ {
		seg := segments.Segment()
		c.localMap = localMaps[idx]
		if err = c.convertAnnotations(seg); err != nil {
			return err
		}
		c.advance(len(seg))
	}
	return segments.Err()
}

func (c *Converter) advance(rows int) {
	c.globalCount += rows
	c.lineCount += rows + 1
}

func (c *Converter) convertTokensAndEntities(segment [][]string, start int) (map[int]map[string]string, int, error) {
	c.localMap = make(map[int]map[string]string)

	offsets, err := c.tokenOffsets(segment, start)
	if err != nil {
		return nil, 0, err
	}
	c.processPoS(segment, offsets)
	c.processEntities(segment, offsets)
	return c.localMap, offsets[len(offsets)-1][1], nil
}

func (c *Converter) convertAnnotations(segment [][]string) error {
	for _, group := range []struct {
		columns []int
		make    func([]string, int, int) error
	}{
		{c.colspec.Relations(), c.makeRelation},
		{c.colspec.Events(), c.makeEvent},
		{c.colspec.Normalizations(), c.makeNormalization},
		{c.colspec.Attributes(), c.makeAttribute},
	} {
		for _, col := range group.columns {
			for idx, row := range segment {
				if err := group.make(row, idx+1, col); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// tokenOffsets locates each token of the segment in the text by forward
// search from the previous token's end, returning [start, end) code-point
// offset pairs.
func (c *Converter) tokenOffsets(segment [][]string, start int) ([][2]int, error) {
	col := c.colspec.Token()
	offsets := make([][2]int, len(segment))

	for idx, row := range segment {
		token := []rune(row[col])
		pos := runeIndex(c.text, token, start)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %q from line %d at %q (%d)", ErrTokenNotFound,
				row[col], c.lineCount+idx, c.window(start, len(token)+10), start)
		}
		if pos-start > farTokenLimit {
			c.logger.Warn("token found far ahead",
				"token", row[col], "distance", pos-start, "after", c.window(start, len(token)+10))
		}
		offsets[idx] = [2]int{pos, pos + len(token)}
		start = pos + len(token)
	}
	return offsets, nil
}

func (c *Converter) window(start, width int) string {
	end := min(start+width, len(c.text))
	return strings.ReplaceAll(string(c.text[start:end]), "\n", "\\n")
}

func runeIndex(text, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(text); i++ {
		if slices.Equal(text[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func (c *Converter) processPoS(segment [][]string, offsets [][2]int) {
	col := c.colspec.PosTag()
	if col < 0 {
		return
	}
	for idx, row := range segment {
		if val := row[col]; val != "" && val != "NULL" {
			c.makeEntity([][]string{row}, idx+1, col, offsets[idx][0], offsets[idx][1])
		}
	}
}

func (c *Converter) processEntities(segment [][]string, offsets [][2]int) {
	for _, col := range c.colspec.Entities() {
		rows, start := c.parseBIEO(segment, col, offsets)
		if len(rows) > 0 {
			c.makeEntity(rows, len(segment)-len(rows)+1, col, start, offsets[len(offsets)-1][1])
		}
	}
}

// parseBIEO walks one entity column, emitting an entity annotation per
// complete B-I-E or B-I-O run. An unterminated run at the end of the
// segment is returned for the caller to flush.
func (c *Converter) parseBIEO(segment [][]string, col int, offsets [][2]int) ([][]string, int) {
	var dataRows [][]string
	start := 0

	for idx, row := range segment {
		val := row[col]

		switch {
		case strings.HasPrefix(val, "B-"):
			if len(dataRows) > 0 {
				c.makeEntity(dataRows, idx+1-len(dataRows), col, start, offsets[idx-1][1])
			}
			start = offsets[idx][0]
			dataRows = [][]string{row}
		case strings.HasPrefix(val, "E-"):
			if len(dataRows) > 0 {
				dataRows = append(dataRows, row)
				c.makeEntity(dataRows, idx+1-len(dataRows), col, start, offsets[idx][1])
				dataRows = nil
			} else {
				c.makeEntity([][]string{row}, idx+1, col, offsets[idx][0], offsets[idx][1])
			}
		case strings.HasPrefix(val, "I-"):
			if len(dataRows) == 0 { // run without a B- opener
				start = offsets[idx][0]
			}
			dataRows = append(dataRows, row)
		case val == "O":
			if len(dataRows) > 0 {
				c.makeEntity(dataRows, idx+1-len(dataRows), col, start, offsets[idx-1][1])
				dataRows = nil
			}
		default:
			c.logger.Warn("bad BIO entity tag", "tag", val)
		}
	}
	return dataRows, start
}

func (c *Converter) makeEntity(rows [][]string, rowNum, col, start, end int) {
	off := 2
	if col == c.colspec.PosTag() {
		off = 0
	}
	if len(rows[0][col]) < off {
		c.logger.Error("could not detect the entity name", "column", col+1, "tag", rows[0][col])
		return
	}

	name, err := c.validateName(rows[0][col][off:])
	if err != nil {
		c.logger.Error("brat cannot cope with entity name", "name", rows[0][col][off:], "column", col+1)
		return
	}

	uid := c.register(col, 'T', rowNum, rows...)
	c.entities[name] = true
	c.store(brat.Entity{UID: uid, Name: name, Start: start, End: end, Text: string(c.text[start:end])})
}

func (c *Converter) makeRelation(data []string, rowNum, col int) error {
	name := data[col]
	refCol := col - 1
	if data[refCol] == "" || data[refCol] == "0" || name == "" || name == "NULL" {
		return nil
	}

	name, err := c.validateName(name)
	if err != nil {
		c.logger.Error("brat cannot cope with relation name", "name", data[col], "column", col+1)
		return nil
	}

	// register first: a relation may be the target of its own references
	uid := c.register(col, 'R', rowNum, data)
	sourceID, err := c.getLocalTargetID(c.colspec.RelationSource(col), data, rowNum)
	if err != nil {
		return err
	}
	targetID, err := c.getReferencedID(data, refCol)
	if err != nil {
		return err
	}

	if c.relations[name] == nil {
		c.relations[name] = make(map[int]bool)
	}
	c.relations[name][col] = true
	c.store(brat.Relation{UID: uid, Name: name, Arg1: sourceID, Arg2: targetID})
	return nil
}

func (c *Converter) makeEvent(data []string, rowNum, col int) error {
	name := data[col]
	triggerCol, refCols := c.colspec.EventRefs(col)
	if name == "" || name == "NULL" || data[triggerCol] == "" || data[triggerCol] == "0" {
		return nil
	}

	name, err := c.validateName(name)
	if err != nil {
		c.logger.Error("brat cannot cope with event name", "name", data[col], "column", col+1)
		return nil
	}

	uid := c.register(col, 'E', rowNum, data)
	triggerID, err := c.getReferencedID(data, triggerCol)
	if err != nil {
		return err
	}

	args := make([]brat.Arg, 0, len(refCols))
	observed := make([]eventArg, len(refCols))
	for idx, refCol := range refCols {
		observed[idx] = eventArg{col: refCol, required: data[refCol] != "0"}
		if data[refCol] == "0" {
			continue
		}
		refID, err := c.getReferencedID(data, refCol)
		if err != nil {
			return err
		}
		args = append(args, brat.Arg{Name: fmt.Sprintf("Arg%d", len(args)+1), Target: refID})
	}

	c.storeEventArguments(name, observed)
	c.store(brat.Event{UID: uid, Name: name, Trigger: triggerID, Args: args})
	return nil
}

// storeEventArguments merges the argument columns seen for an event name;
// an argument is required only if every instance of the event filled it.
// Event columns sharing a name may differ in arity, so positions one side
// never observed become optional.
func (c *Converter) storeEventArguments(name string, observed []eventArg) {
	existing, ok := c.events[name]
	if !ok {
		c.events[name] = observed
		return
	}
	for idx, arg := range observed {
		if idx >= len(existing) {
			arg.required = false
			existing = append(existing, arg)
			continue
		}
		if !arg.required {
			existing[idx].required = false
		}
	}
	for idx := len(observed); idx < len(existing); idx++ {
		existing[idx].required = false
	}
	c.events[name] = existing
}

func (c *Converter) makeNormalization(data []string, rowNum, col int) error {
	val := data[col]
	if val == "" || val == "NULL" {
		return nil
	}

	targetID, err := c.getLocalTargetID(c.colspec.NormalizationTarget(col), data, rowNum)
	if err != nil {
		return err
	}
	uid := c.register(col, 'N', rowNum, data)

	xref, text, ok := strings.Cut(val, " ")
	if !ok {
		text = xref
	}
	db, id, _ := strings.Cut(xref, ":")

	if _, err := c.validateName(db); err != nil {
		c.logger.Error("brat cannot cope with database name", "name", db, "column", col+1)
		return nil
	}
	c.normalizations[db] = true
	c.store(brat.Normalization{UID: uid, Target: targetID, DB: db, Xref: id, Text: text})
	return nil
}

func (c *Converter) makeAttribute(data []string, rowNum, col int) error {
	raw := data[col]
	if raw == "" || raw == "NULL" {
		return nil
	}

	name, modifier, _ := strings.Cut(raw, " ")
	modifier = strings.TrimSpace(modifier)

	name, err := c.validateName(name)
	if err != nil {
		c.logger.Error("brat cannot cope with attribute name", "name", raw, "column", col+1)
		return nil
	}

	uid := c.nextID('A')
	target, err := c.getLocalTargetID(c.colspec.AttributeTarget(col), data, rowNum)
	if err != nil {
		return err
	}

	use, ok := c.attributes[name]
	if !ok {
		use = &attributeUse{modifiers: make(map[string]bool), columns: make(map[int]bool)}
		c.attributes[name] = use
	}
	use.modifiers[modifier] = true
	use.columns[col] = true
	c.store(brat.Attribute{UID: uid, Name: name, Target: target, Modifier: modifier})
	return nil
}

func (c *Converter) store(a brat.Annotation) {
	c.out.WriteString(a.String())
	c.out.WriteByte('\n')
}

func (c *Converter) nextID(letter byte) string {
	c.counters[letter]++
	return fmt.Sprintf("%c%d", letter, c.counters[letter])
}

// register assigns the next brat ID for letter and maps it to each data
// row's enumeration value (or running row number) so that references in
// later columns can resolve to it.
func (c *Converter) register(col int, letter byte, num int, rows ...[]string) string {
	uid := c.nextID(letter)
	globalEnum, localEnum := c.colspec.GlobalEnum(), c.colspec.LocalEnum()

	for idx, row := range rows {
		if c.globalMap != nil {
			gid := strconv.Itoa(c.globalCount + num + idx)
			if globalEnum >= 0 {
				gid = row[globalEnum]
			}
			setdefault(c.globalMap, col, gid, uid)
		}
		lid := strconv.Itoa(num + idx)
		if localEnum >= 0 {
			lid = row[localEnum]
		}
		setdefault(c.localMap, col, lid, uid)
	}
	return uid
}

func setdefault(m map[int]map[string]string, col int, key, uid string) {
	inner, ok := m[col]
	if !ok {
		inner = make(map[string]string)
		m[col] = inner
	}
	if _, ok := inner[key]; !ok {
		inner[key] = uid
	}
}

func (c *Converter) getReferencedID(data []string, refCol int) (string, error) {
	targetCol := c.colspec.ReferenceTarget(refCol)
	mapping := c.localMap
	if c.colspec.IsGlobalRef(refCol) {
		mapping = c.globalMap
	}

	if uid, ok := mapping[targetCol][data[refCol]]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("%w: %d->%d with number %q", ErrUnresolvedReference,
		refCol+1, targetCol+1, data[refCol])
}

func (c *Converter) getLocalTargetID(targetCol int, data []string, rowNum int) (string, error) {
	key := strconv.Itoa(rowNum)
	if localEnum := c.colspec.LocalEnum(); localEnum >= 0 {
		key = data[localEnum]
	}

	if uid, ok := c.localMap[targetCol][key]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("%w: local target column %d with number %s", ErrUnresolvedReference,
		targetCol+1, key)
}

func (c *Converter) validateName(name string) (string, error) {
	if mapped, ok := c.nameLabels[name]; ok {
		name = mapped
	}
	if !validName.MatchString(name) {
		return name, fmt.Errorf("%w: %q", ErrIllegalName, name)
	}
	return name, nil
}
