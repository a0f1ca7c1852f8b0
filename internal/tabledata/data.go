package tabledata

import (
	"sort"

	"github.com/pkg/errors"

	"tabledata/internal/schema"
)

type ownerKind int

const (
	ownerNone ownerKind = iota
	ownerTable
	ownerLearn
)

// ownerRef is the back-reference from a data object to the collaborator
// that allocated it. At most one of table/learn is set, selected by kind.
type ownerRef struct {
	kind  ownerKind
	table *Table
	learn *Learn
}

// Data holds the typed field values of one table or learn entry. Values
// are kept as a tagged variant per field, with the tag supplied by the
// schema rather than stored redundantly. A Data object is created by a
// Table or Learn allocation call, or by Allocate/AllocateContainer on a
// data object that has a container field.
type Data struct {
	sch      *schema.Schema
	owner    ownerRef
	actionID uint32 // 0 when the schema is not action-indexed

	// containerID is the container field this object was allocated for;
	// 0 for top-level objects.
	containerID schema.FieldID

	// held is set once the object has been transferred into a parent
	// container. A held object cannot be transferred again.
	held bool

	scope  map[schema.FieldID]bool
	active map[schema.FieldID]bool
	values map[schema.FieldID]any
}

func newData(sch *schema.Schema, owner ownerRef, actionID uint32, containerID schema.FieldID, fields []schema.FieldID) *Data {
	d := &Data{
		sch:         sch,
		owner:       owner,
		actionID:    actionID,
		containerID: containerID,
		scope:       make(map[schema.FieldID]bool, len(fields)),
		active:      make(map[schema.FieldID]bool, len(fields)),
		values:      make(map[schema.FieldID]any),
	}
	for _, id := range fields {
		d.scope[id] = true
		d.active[id] = true
	}
	return d
}

// Allocate creates a child data object for a container field, scoped to
// all of the container's member fields. The child is owned by the caller
// until transferred into a parent with SetDataArray.
func (d *Data) Allocate(containerID schema.FieldID) (*Data, error) {
	f, err := d.containerField(containerID)
	if err != nil {
		return nil, err
	}
	return newData(d.sch, d.owner, d.actionID, containerID, f.Members), nil
}

// AllocateContainer creates a child data object for a container field,
// scoped to only the listed subset of the container's members. Fields
// outside the subset are invalid for the child's lifetime.
func (d *Data) AllocateContainer(containerID schema.FieldID, fields []schema.FieldID) (*Data, error) {
	f, err := d.containerField(containerID)
	if err != nil {
		return nil, err
	}
	members := make(map[schema.FieldID]bool, len(f.Members))
	for _, m := range f.Members {
		members[m] = true
	}
	for _, id := range fields {
		if !members[id] {
			return nil, errors.Wrapf(ErrAllocation,
				"field %d does not belong to container %d", id, containerID)
		}
	}
	return newData(d.sch, d.owner, d.actionID, containerID, fields), nil
}

func (d *Data) containerField(id schema.FieldID) (*schema.Field, error) {
	f, ok := d.sch.Field(id)
	if !ok || !d.scope[id] {
		return nil, errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	if f.Type != schema.TypeContainer {
		return nil, errors.Wrapf(ErrAllocation, "field %d (%s) is not a container", id, f.Type)
	}
	return f, nil
}

// ActionID returns the action identifier of the data object. It fails for
// data objects whose schema is not action-indexed.
func (d *Data) ActionID() (uint32, error) {
	if d.actionID == 0 {
		return 0, errors.Wrap(ErrNotApplicable, "schema is not action-indexed")
	}
	return d.actionID, nil
}

// ParentTable returns the table this data object was allocated from.
func (d *Data) ParentTable() (*Table, error) {
	if d.owner.kind != ownerTable {
		return nil, errors.Wrap(ErrNotApplicable, "data object has no parent table")
	}
	return d.owner.table, nil
}

// ParentLearn returns the learn object this data object was allocated from.
func (d *Data) ParentLearn() (*Learn, error) {
	if d.owner.kind != ownerLearn {
		return nil, errors.Wrap(ErrNotApplicable, "data object has no parent learn object")
	}
	return d.owner.learn, nil
}

// IsActive reports the activation state of a field. Fields outside the
// object's scope are invalid, not inactive.
func (d *Data) IsActive(id schema.FieldID) (bool, error) {
	if !d.scope[id] {
		return false, errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	return d.active[id], nil
}

// HasValue reports whether a field currently holds a readable value:
// in scope, active, and written at least once.
func (d *Data) HasValue(id schema.FieldID) bool {
	if !d.active[id] {
		return false
	}
	_, ok := d.values[id]
	return ok
}

// Fields returns the ids of all fields in the object's scope, in
// ascending order.
func (d *Data) Fields() []schema.FieldID {
	out := make([]schema.FieldID, 0, len(d.scope))
	for id := range d.scope {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Schema returns the schema this data object was allocated against.
func (d *Data) Schema() *schema.Schema {
	return d.sch
}
