package tabledata

import (
	"github.com/pkg/errors"

	"tabledata/internal/schema"
)

// Table is the collaborator that owns a schema and hands out data objects
// for its entries. Entry lookup and commit to a backing store live above
// this layer.
type Table struct {
	sch *schema.Schema
}

// NewTable creates a table over a validated schema.
func NewTable(sch *schema.Schema) *Table {
	return &Table{sch: sch}
}

// Name returns the schema name of the table.
func (t *Table) Name() string {
	return t.sch.Name()
}

// Schema returns the table's schema.
func (t *Table) Schema() *schema.Schema {
	return t.sch
}

// AllocateData creates a data object scoped to every top-level field of
// the schema, all initially active. The caller exclusively owns the
// returned object.
func (t *Table) AllocateData() *Data {
	actionID, _ := t.sch.ActionID()
	return newData(t.sch, ownerRef{kind: ownerTable, table: t}, actionID, 0, t.sch.TopLevel())
}

// AllocateDataFields creates a data object scoped to a subset of the
// schema's top-level fields, for partial modify/get. Fields outside the
// subset are invalid for the object's lifetime.
func (t *Table) AllocateDataFields(fields []schema.FieldID) (*Data, error) {
	if err := checkTopLevel(t.sch, fields); err != nil {
		return nil, err
	}
	actionID, _ := t.sch.ActionID()
	return newData(t.sch, ownerRef{kind: ownerTable, table: t}, actionID, 0, fields), nil
}

// Learn is the notification collaborator whose data shares the table data
// contract. Learn schemas are typically not action-indexed, but nothing
// here requires that.
type Learn struct {
	sch *schema.Schema
}

// NewLearn creates a learn object over a validated schema.
func NewLearn(sch *schema.Schema) *Learn {
	return &Learn{sch: sch}
}

// Name returns the schema name of the learn object.
func (l *Learn) Name() string {
	return l.sch.Name()
}

// Schema returns the learn object's schema.
func (l *Learn) Schema() *schema.Schema {
	return l.sch
}

// AllocateData creates a data object scoped to every top-level field of
// the learn schema, all initially active.
func (l *Learn) AllocateData() *Data {
	actionID, _ := l.sch.ActionID()
	return newData(l.sch, ownerRef{kind: ownerLearn, learn: l}, actionID, 0, l.sch.TopLevel())
}

// AllocateDataFields creates a data object scoped to a subset of the
// learn schema's top-level fields.
func (l *Learn) AllocateDataFields(fields []schema.FieldID) (*Data, error) {
	if err := checkTopLevel(l.sch, fields); err != nil {
		return nil, err
	}
	actionID, _ := l.sch.ActionID()
	return newData(l.sch, ownerRef{kind: ownerLearn, learn: l}, actionID, 0, fields), nil
}

func checkTopLevel(sch *schema.Schema, fields []schema.FieldID) error {
	for _, id := range fields {
		if _, ok := sch.Field(id); !ok {
			return errors.Wrapf(ErrAllocation, "field %d is not declared by schema %s", id, sch.Name())
		}
		if owner, owned := sch.Container(id); owned {
			return errors.Wrapf(ErrAllocation, "field %d belongs to container %d, not the top level", id, owner)
		}
	}
	return nil
}
