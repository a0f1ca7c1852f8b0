package tabledata

import (
	"github.com/pkg/errors"

	"tabledata/internal/schema"
)

// fieldForWrite resolves a field for a shape-specific setter. Scope and
// shape are checked here; value constraints are checked by the setter.
func (d *Data) fieldForWrite(id schema.FieldID, want schema.FieldType) (*schema.Field, error) {
	f, ok := d.sch.Field(id)
	if !ok || !d.scope[id] {
		return nil, errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	if f.Type != want {
		return nil, errors.Wrapf(ErrInvalidField, "field %d is %s, not %s", id, f.Type, want)
	}
	return f, nil
}

// commit stores a validated value and applies the activation side effect.
// Validation must be complete before commit; a setter either commits fully
// or returns without touching the object.
func (d *Data) commit(f *schema.Field, v any) {
	d.values[f.ID] = v
	d.markActive(f)
}

// SetUint64 writes a bit-width-limited integer field. The value must be
// representable in the field's declared width; a 3-bit field rejects
// anything above 7.
func (d *Data) SetUint64(id schema.FieldID, v uint64) error {
	f, err := d.fieldForWrite(id, schema.TypeUint64)
	if err != nil {
		return err
	}
	if f.Width < 64 && v > (uint64(1)<<f.Width)-1 {
		return errors.Wrapf(ErrOutOfRange, "value %d does not fit %d-bit field %d", v, f.Width, id)
	}
	d.commit(f, v)
	return nil
}

// SetBytes writes a field from a big-endian byte string, MSB-padded within
// the first byte. Valid on byte-string fields and on bit-width-limited
// integer fields; the byte count must equal the field's byte-padded width
// exactly (a 28-bit field takes exactly 4 bytes), and the padding bits
// must be zero.
func (d *Data) SetBytes(id schema.FieldID, b []byte) error {
	f, err := d.bytesField(id)
	if err != nil {
		return err
	}
	if len(b) != f.ByteWidth() {
		return errors.Wrapf(ErrSizeMismatch, "field %d requires %d bytes, got %d", id, f.ByteWidth(), len(b))
	}
	if pad := f.ByteWidth()*8 - f.Width; pad > 0 && b[0]>>(8-pad) != 0 {
		return errors.Wrapf(ErrOutOfRange, "value does not fit %d-bit field %d", f.Width, id)
	}
	if f.Type == schema.TypeUint64 {
		var v uint64
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		d.commit(f, v)
		return nil
	}
	d.commit(f, append([]byte(nil), b...))
	return nil
}

func (d *Data) bytesField(id schema.FieldID) (*schema.Field, error) {
	f, ok := d.sch.Field(id)
	if !ok || !d.scope[id] {
		return nil, errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	if f.Type != schema.TypeBytes && f.Type != schema.TypeUint64 {
		return nil, errors.Wrapf(ErrInvalidField, "field %d is %s, not a sized field", id, f.Type)
	}
	return f, nil
}

// SetUintArray writes an integer-array field. The slice is copied in.
func (d *Data) SetUintArray(id schema.FieldID, arr []uint64) error {
	f, err := d.fieldForWrite(id, schema.TypeUintArray)
	if err != nil {
		return err
	}
	d.commit(f, append([]uint64(nil), arr...))
	return nil
}

// SetBoolArray writes a bool-array field. The slice is copied in.
func (d *Data) SetBoolArray(id schema.FieldID, arr []bool) error {
	f, err := d.fieldForWrite(id, schema.TypeBoolArray)
	if err != nil {
		return err
	}
	d.commit(f, append([]bool(nil), arr...))
	return nil
}

// SetStringArray writes a string-array field. The slice is copied in.
func (d *Data) SetStringArray(id schema.FieldID, arr []string) error {
	f, err := d.fieldForWrite(id, schema.TypeStringArray)
	if err != nil {
		return err
	}
	d.commit(f, append([]string(nil), arr...))
	return nil
}

// SetFloat writes a single-precision float field.
func (d *Data) SetFloat(id schema.FieldID, v float32) error {
	f, err := d.fieldForWrite(id, schema.TypeFloat)
	if err != nil {
		return err
	}
	d.commit(f, v)
	return nil
}

// SetBool writes a bool field.
func (d *Data) SetBool(id schema.FieldID, v bool) error {
	f, err := d.fieldForWrite(id, schema.TypeBool)
	if err != nil {
		return err
	}
	d.commit(f, v)
	return nil
}

// SetString writes a string field.
func (d *Data) SetString(id schema.FieldID, v string) error {
	f, err := d.fieldForWrite(id, schema.TypeString)
	if err != nil {
		return err
	}
	d.commit(f, v)
	return nil
}

// SetDataArray writes a container field, transferring ownership of the
// child data objects into this object. Each child must have been allocated
// for this container field, from the same schema, and must not already be
// owned by another data object. On success this object owns the children
// for the rest of its lifetime and the caller must not reuse its handles;
// on any failure no child is transferred and the caller keeps ownership.
func (d *Data) SetDataArray(id schema.FieldID, children []*Data) error {
	f, err := d.fieldForWrite(id, schema.TypeContainer)
	if err != nil {
		return err
	}
	seen := make(map[*Data]bool, len(children))
	for _, c := range children {
		if c == nil {
			return errors.Wrapf(ErrInvalidField, "container %d: nil data object", id)
		}
		if seen[c] {
			return errors.Wrapf(ErrInvalidField, "container %d: duplicate data object", id)
		}
		seen[c] = true
		if c.sch != d.sch {
			return errors.Wrapf(ErrInvalidField, "container %d: child allocated from schema %s", id, c.sch.Name())
		}
		if c.containerID != id {
			return errors.Wrapf(ErrInvalidField, "container %d: child was allocated for container %d", id, c.containerID)
		}
		if c.held {
			return errors.Wrapf(ErrInvalidField, "container %d: child already owned by a data object", id)
		}
	}
	owned := make([]*Data, len(children))
	copy(owned, children)
	for _, c := range owned {
		c.held = true
	}
	d.commit(f, owned)
	return nil
}
