package schema

import (
	"sort"

	"github.com/pkg/errors"
)

// FieldID identifies a field within one schema. IDs are opaque; callers
// obtain them from the schema definition, not from insertion order.
type FieldID uint32

// FieldType enumerates the value shapes a field can take.
type FieldType int

const (
	// TypeUint64 is an unsigned integer of a declared bit-width <= 64.
	TypeUint64 FieldType = iota
	// TypeBytes is an arbitrary-width integer carried as a big-endian
	// byte string, MSB-padded within the first byte.
	TypeBytes
	// TypeUintArray is an array of unsigned integers.
	TypeUintArray
	// TypeBoolArray is an array of booleans.
	TypeBoolArray
	// TypeStringArray is an array of strings.
	TypeStringArray
	// TypeFloat is an IEEE-754 single precision float.
	TypeFloat
	// TypeBool is a single boolean.
	TypeBool
	// TypeString is a single string.
	TypeString
	// TypeContainer is an ordered sequence of child data objects.
	TypeContainer
)

// String returns the definition-file spelling of the field type.
func (t FieldType) String() string {
	switch t {
	case TypeUint64:
		return "uint64"
	case TypeBytes:
		return "bytes"
	case TypeUintArray:
		return "uint_array"
	case TypeBoolArray:
		return "bool_array"
	case TypeStringArray:
		return "string_array"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeContainer:
		return "container"
	}
	return "unknown"
}

// Field describes one field of a table or learn schema.
type Field struct {
	ID      FieldID
	Name    string
	Type    FieldType
	Width   int       // bits; meaningful for TypeUint64 and TypeBytes
	Oneof   uint32    // oneof group id, 0 = not a oneof member
	Members []FieldID // member fields, for TypeContainer only
}

// ByteWidth returns the byte-padded size of the field: ceil(Width/8).
func (f *Field) ByteWidth() int {
	return (f.Width + 7) / 8
}

// Schema is the validated, immutable metadata for one table or learn
// object. A zero actionID means the schema is not action-indexed.
type Schema struct {
	name     string
	actionID uint32
	fields   map[FieldID]*Field
	topLevel []FieldID
	oneofs   map[uint32][]FieldID
	owner    map[FieldID]FieldID // member field -> owning container
}

// New builds a schema from a field list, validating ids, widths, oneof
// groups, and container membership. actionID 0 declares the schema
// non-action-indexed.
func New(name string, actionID uint32, fields []Field) (*Schema, error) {
	if name == "" {
		return nil, errors.New("schema name cannot be empty")
	}

	s := &Schema{
		name:     name,
		actionID: actionID,
		fields:   make(map[FieldID]*Field, len(fields)),
		oneofs:   make(map[uint32][]FieldID),
		owner:    make(map[FieldID]FieldID),
	}

	for i := range fields {
		f := fields[i]
		if f.ID == 0 {
			return nil, errors.Errorf("schema %s: field id 0 is reserved", name)
		}
		if _, dup := s.fields[f.ID]; dup {
			return nil, errors.Errorf("schema %s: duplicate field id %d", name, f.ID)
		}
		switch f.Type {
		case TypeUint64:
			if f.Width < 1 || f.Width > 64 {
				return nil, errors.Errorf("schema %s: field %d: uint64 width must be 1..64 bits, got %d",
					name, f.ID, f.Width)
			}
		case TypeBytes:
			if f.Width < 1 {
				return nil, errors.Errorf("schema %s: field %d: bytes width must be >= 1 bit, got %d",
					name, f.ID, f.Width)
			}
		case TypeContainer:
			if len(f.Members) == 0 {
				return nil, errors.Errorf("schema %s: field %d: container has no members", name, f.ID)
			}
		}
		s.fields[f.ID] = &f
	}

	for id, f := range s.fields {
		if f.Oneof != 0 {
			s.oneofs[f.Oneof] = append(s.oneofs[f.Oneof], id)
		}
		if f.Type != TypeContainer {
			continue
		}
		for _, m := range f.Members {
			if m == id {
				return nil, errors.Errorf("schema %s: container %d lists itself as a member", name, id)
			}
			if _, ok := s.fields[m]; !ok {
				return nil, errors.Errorf("schema %s: container %d lists undeclared member %d", name, id, m)
			}
			if prev, claimed := s.owner[m]; claimed {
				return nil, errors.Errorf("schema %s: field %d claimed by containers %d and %d",
					name, m, prev, id)
			}
			s.owner[m] = id
		}
	}

	for id := range s.fields {
		if _, owned := s.owner[id]; !owned {
			s.topLevel = append(s.topLevel, id)
		}
	}
	sortIDs(s.topLevel)
	for _, members := range s.oneofs {
		sortIDs(members)
	}

	return s, nil
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// ActionID returns the action identifier and whether the schema is
// action-indexed at all.
func (s *Schema) ActionID() (uint32, bool) {
	return s.actionID, s.actionID != 0
}

// Field looks up a field by id.
func (s *Schema) Field(id FieldID) (*Field, bool) {
	f, ok := s.fields[id]
	return f, ok
}

// TopLevel returns the ids of all fields not owned by any container,
// in ascending order.
func (s *Schema) TopLevel() []FieldID {
	out := make([]FieldID, len(s.topLevel))
	copy(out, s.topLevel)
	return out
}

// OneofMembers returns all member ids of a oneof group, in ascending
// order. Unknown groups yield nil.
func (s *Schema) OneofMembers(group uint32) []FieldID {
	members := s.oneofs[group]
	out := make([]FieldID, len(members))
	copy(out, members)
	return out
}

// Container returns the id of the container owning the given field, or
// false if the field is top-level or unknown.
func (s *Schema) Container(id FieldID) (FieldID, bool) {
	c, ok := s.owner[id]
	return c, ok
}

func sortIDs(ids []FieldID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
