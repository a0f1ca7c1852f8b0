package tabledata

import (
	"github.com/pkg/errors"

	"tabledata/internal/schema"
)

// fieldForRead resolves a field for a shape-specific getter. Reads require
// the field to be in scope, of the requested shape, currently active, and
// holding a value; a read never returns a stale or default value.
func (d *Data) fieldForRead(id schema.FieldID, want schema.FieldType) (*schema.Field, any, error) {
	f, ok := d.sch.Field(id)
	if !ok || !d.scope[id] {
		return nil, nil, errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	if f.Type != want {
		return nil, nil, errors.Wrapf(ErrInvalidField, "field %d is %s, not %s", id, f.Type, want)
	}
	return d.storedValue(f)
}

func (d *Data) storedValue(f *schema.Field) (*schema.Field, any, error) {
	if !d.active[f.ID] {
		return nil, nil, errors.Wrapf(ErrInactiveField, "field %d is not active", f.ID)
	}
	v, ok := d.values[f.ID]
	if !ok {
		return nil, nil, errors.Wrapf(ErrInactiveField, "field %d holds no value", f.ID)
	}
	return f, v, nil
}

// GetUint64 reads a bit-width-limited integer field.
func (d *Data) GetUint64(id schema.FieldID) (uint64, error) {
	_, v, err := d.fieldForRead(id, schema.TypeUint64)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// GetBytes reads a field into a caller-supplied buffer as a big-endian,
// MSB-padded byte string. The buffer length must equal the field's
// byte-padded width exactly. Valid on byte-string fields and on
// bit-width-limited integer fields.
func (d *Data) GetBytes(id schema.FieldID, buf []byte) error {
	f, ok := d.sch.Field(id)
	if !ok || !d.scope[id] {
		return errors.Wrapf(ErrInvalidField, "field %d is not part of this data object", id)
	}
	if f.Type != schema.TypeBytes && f.Type != schema.TypeUint64 {
		return errors.Wrapf(ErrInvalidField, "field %d is %s, not a sized field", id, f.Type)
	}
	_, v, err := d.storedValue(f)
	if err != nil {
		return err
	}
	if len(buf) != f.ByteWidth() {
		return errors.Wrapf(ErrSizeMismatch, "field %d requires a %d-byte buffer, got %d", id, f.ByteWidth(), len(buf))
	}
	if f.Type == schema.TypeUint64 {
		u := v.(uint64)
		for i := len(buf) - 1; i >= 0; i-- {
			buf[i] = byte(u)
			u >>= 8
		}
		return nil
	}
	copy(buf, v.([]byte))
	return nil
}

// GetUintArray reads an integer-array field. The slice is copied out.
func (d *Data) GetUintArray(id schema.FieldID) ([]uint64, error) {
	_, v, err := d.fieldForRead(id, schema.TypeUintArray)
	if err != nil {
		return nil, err
	}
	return append([]uint64(nil), v.([]uint64)...), nil
}

// GetBoolArray reads a bool-array field. The slice is copied out.
func (d *Data) GetBoolArray(id schema.FieldID) ([]bool, error) {
	_, v, err := d.fieldForRead(id, schema.TypeBoolArray)
	if err != nil {
		return nil, err
	}
	return append([]bool(nil), v.([]bool)...), nil
}

// GetStringArray reads a string-array field. The slice is copied out.
func (d *Data) GetStringArray(id schema.FieldID) ([]string, error) {
	_, v, err := d.fieldForRead(id, schema.TypeStringArray)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

// GetFloat reads a single-precision float field.
func (d *Data) GetFloat(id schema.FieldID) (float32, error) {
	_, v, err := d.fieldForRead(id, schema.TypeFloat)
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// GetBool reads a bool field.
func (d *Data) GetBool(id schema.FieldID) (bool, error) {
	_, v, err := d.fieldForRead(id, schema.TypeBool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetString reads a string field.
func (d *Data) GetString(id schema.FieldID) (string, error) {
	_, v, err := d.fieldForRead(id, schema.TypeString)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetDataArray reads a container field as non-owning child pointers. The
// data object keeps ownership of the children; callers must not transfer
// or release them.
func (d *Data) GetDataArray(id schema.FieldID) ([]*Data, error) {
	_, v, err := d.fieldForRead(id, schema.TypeContainer)
	if err != nil {
		return nil, err
	}
	children := v.([]*Data)
	out := make([]*Data, len(children))
	copy(out, children)
	return out, nil
}
