package otplc

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// normShape matches namespace-qualified identifiers as used by
// NORMALIZATION columns, plus the NULL placeholder.
var normShape = regexp.MustCompile(`^(?:\S+:\S+|NULL)$`)

// maxGuessRounds caps how many initial segments the guesser inspects. Once
// a guess is complete one extra confirmatory round is run.
const maxGuessRounds = 5

// GuessColspec infers a ColumnSpec from the first few segments of the
// reader's file. If the file starts with a colspec header segment that
// header is parsed instead of guessing.
//
// Guessing is a best-effort heuristic: it assumes a global enumeration
// column, if present, precedes the local one, and it can misclassify
// ambiguous reference columns (the local-scope fallback in particular may
// claim cross-segment references that never exceed the segment length).
// Returns ErrGuessFailed when no usable specification is reached.
func GuessColspec(r *Reader) (*ColumnSpec, error) {
	segs, err := r.Segments()
	if err != nil {
		return nil, err
	}
	defer segs.Close()

	var g *guess
	lastRound := false

	for idx := 0; segs.Scan(); idx++ {
		segment := segs.Segment()

		if g == nil {
			if header, ok := headerSegment(segment); ok {
				cs, err := ColumnSpecFromHeader(header)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrGuessFailed, err)
				}
				r.logger.Info("colspec from header", "colspec", cs.String())
				return cs, nil
			}
			g = newGuess(segment, r.logger)
		}
		if err := g.update(segment); err != nil {
			r.logger.Warn("guessing aborted", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrGuessFailed, err)
		}

		if idx+1 > maxGuessRounds || lastRound {
			break
		}
		if g.complete() {
			lastRound = true
		}
	}

	if err := segs.Err(); err != nil {
		r.logger.Warn("guessing aborted", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGuessFailed, err)
	}
	if g == nil || g.columns < 2 {
		r.logger.Warn("guessing failed", "path", r.Path())
		return nil, fmt.Errorf("%w: %s", ErrGuessFailed, r.Path())
	}

	cs, err := ColumnSpecFromRoles(g.roles)
	if err != nil {
		r.logger.Warn("guessing failed", "path", r.Path(), "error", err,
			"guess", rolesString(g.roles))
		return nil, fmt.Errorf("%w: %v", ErrGuessFailed, err)
	}

	r.logger.Debug("colspec guessed", "colspec", cs.String())
	return cs, nil
}

// headerSegment reports whether the segment is a single row whose fields
// are all role names (optionally ":N"-suffixed), and returns it re-joined.
func headerSegment(segment [][]string) (string, bool) {
	if len(segment) != 1 {
		return "", false
	}
	for _, field := range segment[0] {
		if !IsRoleName(field) {
			return "", false
		}
	}
	return strings.Join(segment[0], " "), true
}

func rolesString(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, " ")
}

// guess is the per-column inference state: a role array updated in place,
// one round per observed segment.
type guess struct {
	columns   int
	roles     []Role
	segment   [][]string
	tokenSeen bool
	logger    *slog.Logger
}

func newGuess(segment [][]string, logger *slog.Logger) *guess {
	return &guess{
		columns: len(segment[0]),
		roles:   make([]Role, len(segment[0])),
		logger:  logger,
	}
}

func (g *guess) complete() bool {
	for _, r := range g.roles {
		if r == Unknown {
			return false
		}
	}
	return true
}

// update runs one inference round over the segment: positional analysis of
// unresolved columns, re-validation of reference columns, then refinement
// of generic annotation columns.
func (g *guess) update(segment [][]string) error {
	g.segment = segment
	g.analyze()
	return g.assignAnnotationTypes()
}

func (g *guess) analyze() {
	g.tokenSeen = false
	for col := 0; col < g.columns; col++ {
		g.analyzeColumn(col)
	}
}

func (g *guess) analyzeColumn(col int) {
	switch {
	case g.roles[col] == Unknown:
		if !g.tokenSeen {
			g.guessIDOrToken(col)
		} else {
			g.guessAnnotationOrReference(col)
		}
	case g.roles[col].IsReference():
		// re-test references every round to weed out spurious early guesses
		g.ensureReference(col)
	}
}

// guessIDOrToken classifies a column left of the token: constant values in
// a multi-row segment mean a segment ID, all-integer values an enumeration,
// anything else must be the token itself.
func (g *guess) guessIDOrToken(col int) {
	first := g.segment[0][col]

	allEqual := true
	for _, row := range g.segment {
		if row[col] != first {
			allEqual = false
			break
		}
	}

	switch {
	case allEqual && len(g.segment) > 1:
		g.roles[col] = SegmentID
	case g.allDigits(col):
		if col == 0 {
			g.roles[col] = LocalEnum
		} else {
			g.ensureEnumColumns(col)
		}
	default:
		g.guessUnique(col, Token)
		g.tokenSeen = true
	}
}

// ensureEnumColumns keeps at most two enumeration columns, the global one
// left of the local one; a third integer column resets the conflict to
// Unknown.
func (g *guess) ensureEnumColumns(thisCol int) {
	globalSet := false
	thisRole := LocalEnum

	for idx, role := range g.roles {
		if role != LocalEnum && role != GlobalEnum {
			continue
		}

		switch {
		case idx == thisCol:
			// the column being classified
		case !globalSet:
			if idx < thisCol {
				g.roles[idx] = GlobalEnum
			} else {
				g.roles[idx] = LocalEnum
				thisRole = GlobalEnum
			}
			globalSet = true
		default:
			g.logger.Warn("already detected two enumeration columns",
				"column", thisCol+1)
			g.roles[idx] = Unknown
		}
	}

	g.roles[thisCol] = thisRole
}

// guessUnique sets the role for this column, resetting any earlier column
// previously guessed as the same role.
func (g *guess) guessUnique(col int, role Role) {
	for idx := 0; idx < col; idx++ {
		if g.roles[idx] == role {
			g.roles[idx] = Unknown
		}
	}
	g.roles[col] = role
}

// guessAnnotationOrReference classifies a column right of the token:
// all-integer values make it a reference, anything else a generic
// annotation to be refined later.
func (g *guess) guessAnnotationOrReference(col int) {
	if g.allDigits(col) {
		g.guessReferenceScope(col)
	} else {
		g.roles[col] = Annotation
	}
}

// ensureReference re-validates a previously guessed reference column.
func (g *guess) ensureReference(col int) {
	if g.allDigits(col) {
		g.guessReferenceScope(col)
	} else {
		g.roles[col] = Unknown
	}
}

// guessReferenceScope decides between local and global reference scope for
// an all-integer column: values exceeding the segment length must be
// global; values covered by a known local enumeration are local; otherwise
// local scope is assumed as a documented fallback.
func (g *guess) guessReferenceScope(col int) {
	refs := make(map[int]bool)
	maxRef := 0
	for _, row := range g.segment {
		if row[col] == "0" {
			continue
		}
		n, _ := strconv.Atoi(row[col])
		refs[n] = true
		if n > maxRef {
			maxRef = n
		}
	}

	if maxRef > len(g.segment) {
		g.roles[col] = GlobalRef
		return
	}

	for idx, role := range g.roles {
		if role != LocalEnum {
			continue
		}

		enums, ok := g.intColumn(idx)
		if !ok {
			g.roles[idx] = Unknown
			continue
		}

		subset := true
		for n := range refs {
			if !enums[n] {
				subset = false
				break
			}
		}
		if subset {
			g.roles[col] = LocalRef
			return
		}
	}

	g.logger.Info("fallback guess to local reference scope", "column", col+1)
	g.roles[col] = LocalRef
}

func (g *guess) intColumn(col int) (map[int]bool, bool) {
	vals := make(map[int]bool, len(g.segment))
	for _, row := range g.segment {
		n, err := strconv.Atoi(row[col])
		if err != nil {
			return nil, false
		}
		vals[n] = true
	}
	return vals, true
}

func (g *guess) allDigits(col int) bool {
	for _, row := range g.segment {
		val := row[col]
		if val == "" {
			return false
		}
		for _, c := range val {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// assignAnnotationTypes refines generic annotation columns into concrete
// roles and disambiguates events from relations next to reference runs.
func (g *guess) assignAnnotationTypes() error {
	for col, role := range g.roles {
		switch {
		case role == Annotation:
			if col > 0 && g.roles[col-1] != Unknown && !g.roles[col-1].IsReference() {
				g.guessTagOrProperty(col)
			}
		case role.IsReference():
			if err := g.guessEventOrRelation(col); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *guess) hasTagLeft(col int) bool {
	for idx := col - 1; idx >= 1; idx-- {
		if g.roles[idx].IsTag() {
			return true
		}
	}
	return false
}

// guessTagOrProperty refines one generic annotation column by the shape of
// its values and its position.
func (g *guess) guessTagOrProperty(col int) {
	tagged := g.hasTagLeft(col)

	allNorm := true
	allBIO := true
	for _, row := range g.segment {
		val := row[col]
		if val != "NULL" && !normShape.MatchString(val) {
			allNorm = false
		}
		if !bioPrefixed(val) && val != "O" {
			allBIO = false
		}
	}

	switch {
	case tagged && allNorm:
		g.roles[col] = Normalization
	case allBIO:
		g.roles[col] = Entity
	case tagged:
		g.roles[col] = Attribute
	case g.roles[col-1] == Token:
		g.roles[col] = PosTag
	default:
		g.logger.Debug("no guess yet for column", "column", col+1)
		g.roles[col] = Unknown
	}
}

func bioPrefixed(val string) bool {
	return strings.HasPrefix(val, "B-") ||
		strings.HasPrefix(val, "E-") ||
		strings.HasPrefix(val, "I-")
}

// guessEventOrRelation scans right from a settled reference column to the
// annotation column closing its run: a run longer than one reference means
// an event, otherwise a relation.
func (g *guess) guessEventOrRelation(col int) error {
	for next := col + 1; next < g.columns; next++ {
		switch role := g.roles[next]; {
		case role.IsReference():
			continue
		case role == Relation || role == Event || role == Unknown:
			// already resolved, or undetectable this round
			return nil
		case role == Annotation:
			if next-col > 1 {
				g.roles[next] = Event
			} else {
				g.roles[next] = Relation
			}
			return nil
		default:
			return fmt.Errorf("%w: found %s column %d, expected an association",
				ErrFormat, role, col+1)
		}
	}
	return nil
}
