package codec

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"tabledata/internal/schema"
	"tabledata/internal/tabledata"
)

// Wire mapping per field shape, keyed by the schema field id:
//
//	uint64, bool            varint
//	float                   fixed32
//	bytes, string           length-delimited
//	uint_array, bool_array  length-delimited, packed varints
//	string_array            length-delimited, repeated inner element records
//	container               length-delimited, repeated inner nested encodings
//
// String arrays and containers carry their elements as repeated records
// inside one envelope payload, so an empty array still emits its record
// and presence survives a round trip. Repeated packed records for the
// same field concatenate; repeated envelope records replace each other,
// last record wins. Fields without a readable value are omitted; output
// is ordered by ascending field id, so equal data objects encode
// identically.

// elemNumber is the inner field number for string-array and container
// elements within an envelope payload.
const elemNumber protowire.Number = 1

// Encode serializes every written field of a data object.
func Encode(d *tabledata.Data) ([]byte, error) {
	var buf []byte
	for _, id := range d.Fields() {
		if !d.HasValue(id) {
			continue
		}
		f, ok := d.Schema().Field(id)
		if !ok {
			return nil, errors.Wrapf(tabledata.ErrInvalidField, "field %d is not declared by schema %s", id, d.Schema().Name())
		}
		if uint64(id) > uint64(protowire.MaxValidNumber) {
			return nil, errors.Errorf("field %d exceeds the wire format's field number range", id)
		}
		var err error
		buf, err = appendField(buf, d, f)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendField(buf []byte, d *tabledata.Data, f *schema.Field) ([]byte, error) {
	num := protowire.Number(f.ID)
	switch f.Type {
	case schema.TypeUint64:
		v, err := d.GetUint64(f.ID)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, v)

	case schema.TypeBytes:
		raw := make([]byte, f.ByteWidth())
		if err := d.GetBytes(f.ID, raw); err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, raw)

	case schema.TypeUintArray:
		arr, err := d.GetUintArray(f.ID)
		if err != nil {
			return nil, err
		}
		var packed []byte
		for _, v := range arr {
			packed = protowire.AppendVarint(packed, v)
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)

	case schema.TypeBoolArray:
		arr, err := d.GetBoolArray(f.ID)
		if err != nil {
			return nil, err
		}
		var packed []byte
		for _, v := range arr {
			packed = protowire.AppendVarint(packed, boolBit(v))
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)

	case schema.TypeStringArray:
		arr, err := d.GetStringArray(f.ID)
		if err != nil {
			return nil, err
		}
		var payload []byte
		for _, s := range arr {
			payload = protowire.AppendTag(payload, elemNumber, protowire.BytesType)
			payload = protowire.AppendString(payload, s)
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, payload)

	case schema.TypeFloat:
		v, err := d.GetFloat(f.ID)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.Fixed32Type)
		buf = protowire.AppendFixed32(buf, math.Float32bits(v))

	case schema.TypeBool:
		v, err := d.GetBool(f.ID)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		buf = protowire.AppendVarint(buf, boolBit(v))

	case schema.TypeString:
		v, err := d.GetString(f.ID)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendString(buf, v)

	case schema.TypeContainer:
		children, err := d.GetDataArray(f.ID)
		if err != nil {
			return nil, err
		}
		var payload []byte
		for _, child := range children {
			enc, err := Encode(child)
			if err != nil {
				return nil, err
			}
			payload = protowire.AppendTag(payload, elemNumber, protowire.BytesType)
			payload = protowire.AppendBytes(payload, enc)
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		buf = protowire.AppendBytes(buf, payload)

	default:
		return nil, errors.Errorf("field %d has unsupported shape %s", f.ID, f.Type)
	}
	return buf, nil
}

// Decode allocates a data object from the table and fills it from an
// encoded snapshot.
func Decode(t *tabledata.Table, buf []byte) (*tabledata.Data, error) {
	d := t.AllocateData()
	if err := decodeInto(d, buf); err != nil {
		return nil, err
	}
	return d, nil
}

// DecodeLearn allocates a data object from a learn object and fills it
// from an encoded digest.
func DecodeLearn(l *tabledata.Learn, buf []byte) (*tabledata.Data, error) {
	d := l.AllocateData()
	if err := decodeInto(d, buf); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeInto(d *tabledata.Data, buf []byte) error {
	// Packed records for the same field concatenate, so elements
	// accumulate across the whole message before the single set call.
	uintArrays := make(map[schema.FieldID][]uint64)
	boolArrays := make(map[schema.FieldID][]bool)

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "decoding record tag")
		}
		buf = buf[n:]

		id := schema.FieldID(num)
		f, ok := d.Schema().Field(id)
		if !ok {
			return errors.Wrapf(tabledata.ErrInvalidField, "field %d is not declared by schema %s", id, d.Schema().Name())
		}

		n, err := decodeField(d, f, typ, buf, uintArrays, boolArrays)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}

	for id, arr := range uintArrays {
		if err := d.SetUintArray(id, arr); err != nil {
			return err
		}
	}
	for id, arr := range boolArrays {
		if err := d.SetBoolArray(id, arr); err != nil {
			return err
		}
	}
	return nil
}

func decodeField(d *tabledata.Data, f *schema.Field, typ protowire.Type, buf []byte,
	uintArrays map[schema.FieldID][]uint64, boolArrays map[schema.FieldID][]bool) (int, error) {

	want := protowire.BytesType
	switch f.Type {
	case schema.TypeUint64, schema.TypeBool:
		want = protowire.VarintType
	case schema.TypeFloat:
		want = protowire.Fixed32Type
	}
	if typ != want {
		return 0, errors.Wrapf(tabledata.ErrInvalidField, "field %d (%s) encoded with wire type %d", f.ID, f.Type, typ)
	}

	switch f.Type {
	case schema.TypeUint64:
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return 0, errors.Wrapf(protowire.ParseError(n), "field %d", f.ID)
		}
		return n, d.SetUint64(f.ID, v)

	case schema.TypeBool:
		v, n := protowire.ConsumeVarint(buf)
		if n < 0 {
			return 0, errors.Wrapf(protowire.ParseError(n), "field %d", f.ID)
		}
		return n, d.SetBool(f.ID, v != 0)

	case schema.TypeFloat:
		v, n := protowire.ConsumeFixed32(buf)
		if n < 0 {
			return 0, errors.Wrapf(protowire.ParseError(n), "field %d", f.ID)
		}
		return n, d.SetFloat(f.ID, math.Float32frombits(v))
	}

	raw, n := protowire.ConsumeBytes(buf)
	if n < 0 {
		return 0, errors.Wrapf(protowire.ParseError(n), "field %d", f.ID)
	}

	switch f.Type {
	case schema.TypeBytes:
		return n, d.SetBytes(f.ID, raw)

	case schema.TypeString:
		return n, d.SetString(f.ID, string(raw))

	case schema.TypeUintArray:
		arr := uintArrays[f.ID]
		if arr == nil {
			arr = []uint64{}
		}
		for len(raw) > 0 {
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return 0, errors.Wrapf(protowire.ParseError(m), "field %d element", f.ID)
			}
			arr = append(arr, v)
			raw = raw[m:]
		}
		uintArrays[f.ID] = arr
		return n, nil

	case schema.TypeBoolArray:
		arr := boolArrays[f.ID]
		if arr == nil {
			arr = []bool{}
		}
		for len(raw) > 0 {
			v, m := protowire.ConsumeVarint(raw)
			if m < 0 {
				return 0, errors.Wrapf(protowire.ParseError(m), "field %d element", f.ID)
			}
			arr = append(arr, v != 0)
			raw = raw[m:]
		}
		boolArrays[f.ID] = arr
		return n, nil

	case schema.TypeStringArray:
		elems, err := consumeElements(raw, f.ID)
		if err != nil {
			return 0, err
		}
		arr := make([]string, 0, len(elems))
		for _, e := range elems {
			arr = append(arr, string(e))
		}
		return n, d.SetStringArray(f.ID, arr)

	case schema.TypeContainer:
		elems, err := consumeElements(raw, f.ID)
		if err != nil {
			return 0, err
		}
		children := make([]*tabledata.Data, 0, len(elems))
		for _, e := range elems {
			child, err := d.Allocate(f.ID)
			if err != nil {
				return 0, err
			}
			if err := decodeInto(child, e); err != nil {
				return 0, err
			}
			children = append(children, child)
		}
		return n, d.SetDataArray(f.ID, children)
	}

	return 0, errors.Errorf("field %d has unsupported shape %s", f.ID, f.Type)
}

// consumeElements parses the repeated element records of an envelope
// payload, in order.
func consumeElements(payload []byte, id schema.FieldID) ([][]byte, error) {
	var out [][]byte
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, errors.Wrapf(protowire.ParseError(n), "field %d element tag", id)
		}
		payload = payload[n:]
		if num != elemNumber || typ != protowire.BytesType {
			return nil, errors.Errorf("field %d: unexpected element record %d with wire type %d", id, num, typ)
		}
		e, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, errors.Wrapf(protowire.ParseError(n), "field %d element", id)
		}
		out = append(out, e)
		payload = payload[n:]
	}
	return out, nil
}

func boolBit(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
