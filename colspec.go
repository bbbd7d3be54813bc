package otplc

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Role is the semantic type of an OTPL column.
type Role uint8

// The roles a column may take. Unknown and Annotation are internal: Unknown
// marks a column without a resolved role and Annotation marks a column known
// to hold annotations whose exact role is still being inferred.
const (
	Unknown Role = iota
	Token
	SegmentID
	GlobalEnum
	LocalEnum
	PosTag
	Entity
	Normalization
	Relation
	Event
	Attribute
	LocalRef
	GlobalRef
	Annotation

	numRoles
)

// roleInfo is the static per-role metadata table: the header name, whether
// the role may sit between an association/property column and its target
// (skippable), whether it is a valid property / ":N" override target, and
// whether it is a tag (the default reference target kind).
var roleInfo = [numRoles]struct {
	name       string
	skippable  bool
	propTarget bool
	tag        bool
}{
	Unknown:       {name: "_UNKNOWN"},
	Token:         {name: "TOKEN"},
	SegmentID:     {name: "SEGMENT_ID"},
	GlobalEnum:    {name: "GLOBAL_ENUM"},
	LocalEnum:     {name: "LOCAL_ENUM"},
	PosTag:        {name: "POS_TAG", propTarget: true, tag: true},
	Entity:        {name: "ENTITY", propTarget: true, tag: true},
	Normalization: {name: "NORMALIZATION", skippable: true},
	Relation:      {name: "RELATION", skippable: true, propTarget: true},
	Event:         {name: "EVENT", skippable: true, propTarget: true},
	Attribute:     {name: "ATTRIBUTE", skippable: true},
	LocalRef:      {name: "LOCAL_REF", skippable: true},
	GlobalRef:     {name: "GLOBAL_REF", skippable: true},
	Annotation:    {name: "_ANNOTATION"},
}

var roleNames = func() map[string]Role {
	m := make(map[string]Role, numRoles)
	for r := Role(0); r < numRoles; r++ {
		m[roleInfo[r].name] = r
	}
	return m
}()

// String returns the colspec header name of the role, or "_TYPE_" for values
// outside the known range.
func (r Role) String() string {
	if r >= numRoles {
		return "_TYPE_"
	}
	return roleInfo[r].name
}

// IsReference reports whether the role is LOCAL_REF or GLOBAL_REF.
func (r Role) IsReference() bool { return r == LocalRef || r == GlobalRef }

// IsTag reports whether the role is POS_TAG or ENTITY.
func (r Role) IsTag() bool { return r < numRoles && roleInfo[r].tag }

// ParseRole resolves a header name, without any ":N" suffix, to its role.
func ParseRole(name string) (Role, bool) {
	r, ok := roleNames[name]
	return r, ok
}

// IsRoleName reports whether the field's pre-colon substring is a known role
// name. The reader uses this to detect colspec header segments.
func IsRoleName(field string) bool {
	name, _, _ := strings.Cut(field, ":")
	_, ok := roleNames[name]
	return ok
}

// eventTargets holds the resolved reference columns of one EVENT column: the
// trigger reference and at least one argument reference.
type eventTargets struct {
	trigger int
	args    []int
}

// ColumnSpec is the immutable, resolved mapping from column index to role
// and, for association, property and reference columns, to their target
// column. Build one with ColumnSpecFromHeader or ColumnSpecFromRoles.
type ColumnSpec struct {
	roles      []Role
	token      int
	globalEnum int
	localEnum  int
	posTag     int
	segmentIDs map[int]bool
	entities   map[int]bool
	events     map[int]eventTargets
	relations  map[int]int // relation column -> source target column
	globalRefs map[int]int // reference column -> target column
	localRefs  map[int]int
	norms      map[int]int // property column -> target column
	attributes map[int]int
}

// ParseHeader converts a colspec header string into a role list.
//
//	ParseHeader("SEGMENT_ID LOCAL_ENUM TOKEN POS_TAG LOCAL_REF RELATION")
//
// yields [SegmentID, LocalEnum, Token, PosTag, LocalRef, Relation]. Role
// names prefixed with an underscore are internal and accepted with a
// warning. An unknown name fails with ErrColumnName naming the column.
func ParseHeader(header string) ([]Role, error) {
	fields := strings.Fields(header)
	roles := make([]Role, len(fields))

	for idx, field := range fields {
		if strings.HasPrefix(field, "_") {
			slog.Warn("using an internal colspec type; probably a bad idea",
				"column", idx+1, "name", field)
		}

		name, _, _ := strings.Cut(field, ":")
		role, ok := roleNames[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q in column %d", ErrColumnName, name, idx+1)
		}
		roles[idx] = role
	}

	return roles, nil
}

// ColumnSpecFromHeader builds a ColumnSpec from a colspec header string.
func ColumnSpecFromHeader(header string) (*ColumnSpec, error) {
	roles, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}
	return newColumnSpec(roles, strings.Fields(header))
}

// ColumnSpecFromRoles builds a ColumnSpec from a role list. The list is
// rendered to header fields first so both constructors share the exact same
// validation behavior.
func ColumnSpecFromRoles(roles []Role) (*ColumnSpec, error) {
	fields := make([]string, len(roles))
	for idx, role := range roles {
		fields[idx] = role.String()
	}
	return newColumnSpec(roles, fields)
}

func newColumnSpec(roles []Role, fields []string) (*ColumnSpec, error) {
	if len(roles) < 2 {
		return nil, fmt.Errorf("%w: single-column colspec", ErrColumnName)
	}

	cs := &ColumnSpec{
		roles:      slices.Clone(roles),
		token:      -1,
		globalEnum: -1,
		localEnum:  -1,
		posTag:     -1,
		segmentIDs: make(map[int]bool),
		entities:   make(map[int]bool),
		events:     make(map[int]eventTargets),
		relations:  make(map[int]int),
		globalRefs: make(map[int]int),
		localRefs:  make(map[int]int),
		norms:      make(map[int]int),
		attributes: make(map[int]int),
	}

	for col, role := range roles {
		var err error

		switch role {
		case Token:
			err = setColumn(&cs.token, Token, col)
		case GlobalEnum:
			err = setColumn(&cs.globalEnum, GlobalEnum, col)
		case LocalEnum:
			err = setColumn(&cs.localEnum, LocalEnum, col)
		case PosTag:
			err = setColumn(&cs.posTag, PosTag, col)
		case SegmentID:
			cs.segmentIDs[col] = true
		case Entity:
			cs.entities[col] = true
		case Event:
			cs.events[col] = eventTargets{}
		case Relation:
			if col == 0 || !roles[col-1].IsReference() {
				err = fmt.Errorf("%w: RELATION column %d", ErrMissingReference, col+1)
				break
			}
			err = cs.addTargeted(cs.relations, roles, fields, col)
		case GlobalRef:
			err = cs.addTargeted(cs.globalRefs, roles, fields, col)
		case LocalRef:
			err = cs.addTargeted(cs.localRefs, roles, fields, col)
		case Normalization:
			err = cs.addProperty(cs.norms, roles, col)
		case Attribute:
			err = cs.addProperty(cs.attributes, roles, col)
		case Unknown:
			slog.Info("ignoring _UNKNOWN column", "column", col+1)
		default:
			err = fmt.Errorf("%w: unknown %s (%d) column %d",
				ErrColumnName, fields[col], role, col+1)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := cs.initEvents(roles); err != nil {
		return nil, err
	}
	return cs, nil
}

func setColumn(slot *int, role Role, col int) error {
	if *slot >= 0 {
		return fmt.Errorf("%w: %s already assigned to column %d",
			ErrDuplicateColumn, role, *slot+1)
	}
	*slot = col
	return nil
}

// addTargeted registers a reference or relation column, resolving its target
// via the ":N" header override, or by the nearest-left-tag scan.
func (cs *ColumnSpec) addTargeted(into map[int]int, roles []Role, fields []string, col int) error {
	if err := cs.ensureUnmapped(roles, col); err != nil {
		return err
	}

	if _, suffix, ok := strings.Cut(fields[col], ":"); ok {
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 1 || n > len(roles) {
			return fmt.Errorf("%w: %s column %d", ErrInvalidTarget, fields[col], col+1)
		}

		target := n - 1
		if !roleInfo[roles[target]].propTarget {
			return fmt.Errorf("%w: target (%s) of %s column %d",
				ErrInvalidTarget, roles[target], fields[col], col+1)
		}

		into[col] = target
		return nil
	}

	return scanTarget(into, roles, col, Role.IsTag)
}

// addProperty registers a NORMALIZATION or ATTRIBUTE column; its target may
// be any tag or association column, never the token or another property.
func (cs *ColumnSpec) addProperty(into map[int]int, roles []Role, col int) error {
	if err := cs.ensureUnmapped(roles, col); err != nil {
		return err
	}
	return scanTarget(into, roles, col, func(r Role) bool { return roleInfo[r].propTarget })
}

func (cs *ColumnSpec) ensureUnmapped(roles []Role, col int) error {
	for _, m := range []map[int]int{
		cs.relations, cs.globalRefs, cs.localRefs, cs.norms, cs.attributes,
	} {
		if _, dup := m[col]; dup {
			return fmt.Errorf("%w: %s column %d", ErrColumnMapped, roles[col], col+1)
		}
	}
	return nil
}

// scanTarget walks leftward from the column being resolved and binds the
// first column whose role satisfies accept. Skippable columns are stepped
// over; any other column fails the scan immediately. Column 0 is never a
// candidate: a target always has the token somewhere to its left.
func scanTarget(into map[int]int, roles []Role, col int, accept func(Role) bool) error {
	for target := col - 1; target >= 1; target-- {
		switch {
		case accept(roles[target]):
			into[col] = target
			return nil
		case !roleInfo[roles[target]].skippable:
			return fmt.Errorf("%w: %s column %d has no target",
				ErrNoTarget, roles[col], col+1)
		}
	}
	return fmt.Errorf("%w: %s column %d with no target", ErrMissingTarget, roles[col], col+1)
}

// initEvents resolves the trigger and argument references for every EVENT
// column: the maximal contiguous run of reference columns immediately to its
// left, at least two entries long, leftmost entry being the trigger.
func (cs *ColumnSpec) initEvents(roles []Role) error {
	for _, col := range slices.Sorted(maps.Keys(cs.events)) {
		var refs []int
		for idx := col - 1; idx >= 1 && roles[idx].IsReference(); idx-- {
			refs = append(refs, idx)
		}

		if len(refs) < 2 {
			return fmt.Errorf("%w: EVENT column %d", ErrEventReferences, col+1)
		}

		slices.Reverse(refs)
		cs.events[col] = eventTargets{trigger: refs[0], args: refs[1:]}
	}
	return nil
}

// Width returns the number of columns covered by the specification.
func (cs *ColumnSpec) Width() int { return len(cs.roles) }

// RoleAt returns the resolved role of the column, or Unknown for columns
// without one (including out-of-range columns).
func (cs *ColumnSpec) RoleAt(col int) Role {
	if col < 0 || col >= len(cs.roles) {
		return Unknown
	}
	return cs.roles[col]
}

// Token returns the token column index.
func (cs *ColumnSpec) Token() int { return cs.token }

// PosTag returns the POS_TAG column index, or -1 if there is none.
func (cs *ColumnSpec) PosTag() int { return cs.posTag }

// LocalEnum returns the LOCAL_ENUM column index, or -1 if there is none.
func (cs *ColumnSpec) LocalEnum() int { return cs.localEnum }

// GlobalEnum returns the GLOBAL_ENUM column index, or -1 if there is none.
func (cs *ColumnSpec) GlobalEnum() int { return cs.globalEnum }

// Entities returns the ENTITY column indices in ascending order.
func (cs *ColumnSpec) Entities() []int { return slices.Sorted(maps.Keys(cs.entities)) }

// SegmentIDs returns the SEGMENT_ID column indices in ascending order.
func (cs *ColumnSpec) SegmentIDs() []int { return slices.Sorted(maps.Keys(cs.segmentIDs)) }

// Relations returns the RELATION column indices in ascending order.
func (cs *ColumnSpec) Relations() []int { return slices.Sorted(maps.Keys(cs.relations)) }

// Events returns the EVENT column indices in ascending order.
func (cs *ColumnSpec) Events() []int { return slices.Sorted(maps.Keys(cs.events)) }

// Normalizations returns the NORMALIZATION column indices in ascending order.
func (cs *ColumnSpec) Normalizations() []int { return slices.Sorted(maps.Keys(cs.norms)) }

// Attributes returns the ATTRIBUTE column indices in ascending order.
func (cs *ColumnSpec) Attributes() []int { return slices.Sorted(maps.Keys(cs.attributes)) }

// RelationSource returns the resolved source target column of a RELATION
// column.
func (cs *ColumnSpec) RelationSource(col int) int { return cs.relations[col] }

// ReferenceTarget returns the resolved target column of a LOCAL_REF or
// GLOBAL_REF column.
func (cs *ColumnSpec) ReferenceTarget(col int) int {
	if target, ok := cs.globalRefs[col]; ok {
		return target
	}
	return cs.localRefs[col]
}

// NormalizationTarget returns the target column of a NORMALIZATION column.
func (cs *ColumnSpec) NormalizationTarget(col int) int { return cs.norms[col] }

// AttributeTarget returns the target column of an ATTRIBUTE column.
func (cs *ColumnSpec) AttributeTarget(col int) int { return cs.attributes[col] }

// EventRefs returns the trigger reference column and the argument reference
// columns (in left-to-right order) of an EVENT column.
func (cs *ColumnSpec) EventRefs(col int) (trigger int, args []int) {
	ev := cs.events[col]
	return ev.trigger, ev.args
}

// HasGlobalRefs reports whether any GLOBAL_REF column exists; if so, the
// converter must run two passes over the file.
func (cs *ColumnSpec) HasGlobalRefs() bool { return len(cs.globalRefs) > 0 }

// IsGlobalRef reports whether the column is a GLOBAL_REF column.
func (cs *ColumnSpec) IsGlobalRef(col int) bool {
	_, ok := cs.globalRefs[col]
	return ok
}

// PropertyTargetRole classifies a property target column as PosTag, Entity,
// Relation or Event.
func (cs *ColumnSpec) PropertyTargetRole(col int) (Role, error) {
	role := cs.RoleAt(col)
	if !roleInfo[role].propTarget {
		return Unknown, fmt.Errorf("%w: column %d not a valid property target",
			ErrInvalidTarget, col+1)
	}
	return role, nil
}

// String renders the colspec header for this specification, scanning columns
// left to right and stopping at the first column without a resolved role.
// For any header the constructor accepted this reproduces it exactly.
func (cs *ColumnSpec) String() string {
	names := make([]string, 0, len(cs.roles))
	for _, role := range cs.roles {
		if role == Unknown {
			break
		}
		names = append(names, role.String())
	}
	return strings.Join(names, " ")
}

// Equal reports structural equality: identical role assignments and
// identical resolved target maps.
func (cs *ColumnSpec) Equal(other *ColumnSpec) bool {
	if other == nil {
		return false
	}
	if !slices.Equal(cs.roles, other.roles) ||
		cs.token != other.token || cs.globalEnum != other.globalEnum ||
		cs.localEnum != other.localEnum || cs.posTag != other.posTag {
		return false
	}
	if !maps.Equal(cs.segmentIDs, other.segmentIDs) ||
		!maps.Equal(cs.entities, other.entities) ||
		!maps.Equal(cs.relations, other.relations) ||
		!maps.Equal(cs.globalRefs, other.globalRefs) ||
		!maps.Equal(cs.localRefs, other.localRefs) ||
		!maps.Equal(cs.norms, other.norms) ||
		!maps.Equal(cs.attributes, other.attributes) {
		return false
	}
	return maps.EqualFunc(cs.events, other.events, func(a, b eventTargets) bool {
		return a.trigger == b.trigger && slices.Equal(a.args, b.args)
	})
}
