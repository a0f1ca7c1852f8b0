package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"

	"tabledata/internal/schema"
	"tabledata/internal/tabledata"
)

func digestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New("snapshot", 0, []schema.Field{
		{ID: 1, Name: "meter", Type: schema.TypeUint64, Width: 12},
		{ID: 2, Name: "prefix", Type: schema.TypeBytes, Width: 28},
		{ID: 3, Name: "ports", Type: schema.TypeUintArray},
		{ID: 4, Name: "flags", Type: schema.TypeBoolArray},
		{ID: 5, Name: "labels", Type: schema.TypeStringArray},
		{ID: 6, Name: "rate", Type: schema.TypeFloat},
		{ID: 7, Name: "enabled", Type: schema.TypeBool},
		{ID: 8, Name: "comment", Type: schema.TypeString},
		{ID: 10, Name: "drop", Type: schema.TypeBool, Oneof: 1},
		{ID: 11, Name: "fwd", Type: schema.TypeUint64, Width: 9, Oneof: 1},
		{ID: 20, Name: "counters", Type: schema.TypeContainer, Members: []schema.FieldID{21, 22}},
		{ID: 21, Name: "pkts", Type: schema.TypeUint64, Width: 64},
		{ID: 22, Name: "unit", Type: schema.TypeString},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}
	return s
}

// snapshot extracts every readable field into plain Go values so two data
// objects can be compared structurally.
func snapshot(t *testing.T, d *tabledata.Data) map[schema.FieldID]any {
	t.Helper()
	out := make(map[schema.FieldID]any)
	for _, id := range d.Fields() {
		if !d.HasValue(id) {
			continue
		}
		f, ok := d.Schema().Field(id)
		if !ok {
			t.Fatalf("Field %d missing from schema", id)
		}
		switch f.Type {
		case schema.TypeUint64:
			v, err := d.GetUint64(id)
			if err != nil {
				t.Fatalf("GetUint64(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeBytes:
			raw := make([]byte, f.ByteWidth())
			if err := d.GetBytes(id, raw); err != nil {
				t.Fatalf("GetBytes(%d) failed: %v", id, err)
			}
			out[id] = raw
		case schema.TypeUintArray:
			v, err := d.GetUintArray(id)
			if err != nil {
				t.Fatalf("GetUintArray(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeBoolArray:
			v, err := d.GetBoolArray(id)
			if err != nil {
				t.Fatalf("GetBoolArray(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeStringArray:
			v, err := d.GetStringArray(id)
			if err != nil {
				t.Fatalf("GetStringArray(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeFloat:
			v, err := d.GetFloat(id)
			if err != nil {
				t.Fatalf("GetFloat(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeBool:
			v, err := d.GetBool(id)
			if err != nil {
				t.Fatalf("GetBool(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeString:
			v, err := d.GetString(id)
			if err != nil {
				t.Fatalf("GetString(%d) failed: %v", id, err)
			}
			out[id] = v
		case schema.TypeContainer:
			children, err := d.GetDataArray(id)
			if err != nil {
				t.Fatalf("GetDataArray(%d) failed: %v", id, err)
			}
			var nested []map[schema.FieldID]any
			for _, c := range children {
				nested = append(nested, snapshot(t, c))
			}
			out[id] = nested
		}
	}
	return out
}

func TestCodec_RoundTrip(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	d := tbl.AllocateData()

	if err := d.SetUint64(1, 4095); err != nil {
		t.Fatalf("SetUint64 failed: %v", err)
	}
	if err := d.SetBytes(2, []byte{0x0d, 0xed, 0xbe, 0xef}); err != nil {
		t.Fatalf("SetBytes failed: %v", err)
	}
	if err := d.SetUintArray(3, []uint64{1, 128, 1 << 40}); err != nil {
		t.Fatalf("SetUintArray failed: %v", err)
	}
	if err := d.SetBoolArray(4, []bool{true, false, true}); err != nil {
		t.Fatalf("SetBoolArray failed: %v", err)
	}
	if err := d.SetStringArray(5, []string{"red", "", "green"}); err != nil {
		t.Fatalf("SetStringArray failed: %v", err)
	}
	if err := d.SetFloat(6, 0.25); err != nil {
		t.Fatalf("SetFloat failed: %v", err)
	}
	if err := d.SetBool(7, true); err != nil {
		t.Fatalf("SetBool failed: %v", err)
	}
	if err := d.SetString(8, "snapshot"); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	if err := d.SetUint64(11, 300); err != nil {
		t.Fatalf("SetUint64 failed: %v", err)
	}

	c1, err := d.Allocate(20)
	if err != nil {
		t.Fatalf("Allocate(20) failed: %v", err)
	}
	if err := c1.SetUint64(21, 1<<50); err != nil {
		t.Fatalf("SetUint64(21) failed: %v", err)
	}
	c2, err := d.Allocate(20)
	if err != nil {
		t.Fatalf("Allocate(20) failed: %v", err)
	}
	if err := c2.SetString(22, "bytes"); err != nil {
		t.Fatalf("SetString(22) failed: %v", err)
	}
	if err := d.SetDataArray(20, []*tabledata.Data{c1, c2}); err != nil {
		t.Fatalf("SetDataArray(20) failed: %v", err)
	}

	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if diff := cmp.Diff(snapshot(t, d), snapshot(t, got)); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))

	build := func() *tabledata.Data {
		d := tbl.AllocateData()
		if err := d.SetString(8, "same"); err != nil {
			t.Fatalf("SetString failed: %v", err)
		}
		if err := d.SetUint64(1, 9); err != nil {
			t.Fatalf("SetUint64 failed: %v", err)
		}
		if err := d.SetBool(7, false); err != nil {
			t.Fatalf("SetBool failed: %v", err)
		}
		return d
	}

	a, err := Encode(build())
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	b, err := Encode(build())
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("Expected identical encodings, got % x vs % x", a, b)
	}
}

func TestCodec_OneofSurvivesRoundTrip(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	d := tbl.AllocateData()

	if err := d.SetBool(10, true); err != nil {
		t.Fatalf("SetBool(10) failed: %v", err)
	}
	if err := d.SetUint64(11, 42); err != nil {
		t.Fatalf("SetUint64(11) failed: %v", err)
	}

	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	// Only the winning oneof member is encoded and active after decode
	if active, err := got.IsActive(11); err != nil || !active {
		t.Errorf("Expected field 11 active, got %v (err=%v)", active, err)
	}
	if _, err := got.GetBool(10); !errors.Is(err, tabledata.ErrInactiveField) {
		t.Errorf("Expected ErrInactiveField for losing oneof member, got %v", err)
	}
}

func TestCodec_EmptyArraysKeepPresence(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	d := tbl.AllocateData()

	if err := d.SetUintArray(3, []uint64{}); err != nil {
		t.Fatalf("SetUintArray failed: %v", err)
	}
	if err := d.SetBoolArray(4, []bool{}); err != nil {
		t.Fatalf("SetBoolArray failed: %v", err)
	}
	if err := d.SetStringArray(5, []string{}); err != nil {
		t.Fatalf("SetStringArray failed: %v", err)
	}
	if err := d.SetDataArray(20, []*tabledata.Data{}); err != nil {
		t.Fatalf("SetDataArray failed: %v", err)
	}

	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	// An empty array is still a written field after a round trip
	for _, id := range []schema.FieldID{3, 4, 5, 20} {
		if !got.HasValue(id) {
			t.Errorf("Field %d lost presence across the round trip", id)
		}
	}
	if arr, err := got.GetUintArray(3); err != nil || len(arr) != 0 {
		t.Errorf("Expected empty uint array, got %v (err=%v)", arr, err)
	}
	if arr, err := got.GetStringArray(5); err != nil || len(arr) != 0 {
		t.Errorf("Expected empty string array, got %v (err=%v)", arr, err)
	}
	if children, err := got.GetDataArray(20); err != nil || len(children) != 0 {
		t.Errorf("Expected no children, got %d (err=%v)", len(children), err)
	}
}

func TestCodec_EmptyStringElementDistinctFromEmptyArray(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	d := tbl.AllocateData()

	if err := d.SetStringArray(5, []string{""}); err != nil {
		t.Fatalf("SetStringArray failed: %v", err)
	}

	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	arr, err := got.GetStringArray(5)
	if err != nil {
		t.Fatalf("GetStringArray failed: %v", err)
	}
	if len(arr) != 1 || arr[0] != "" {
		t.Errorf("Expected one empty element, got %v", arr)
	}
}

func TestDecode_ConcatenatedPackedRecords(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))

	// Two packed records for the same field concatenate, per the wire
	// format's packed-repeated convention
	var enc []byte
	enc = protowire.AppendTag(enc, 3, protowire.BytesType)
	enc = protowire.AppendBytes(enc, append(protowire.AppendVarint(nil, 1), protowire.AppendVarint(nil, 2)...))
	enc = protowire.AppendTag(enc, 3, protowire.BytesType)
	enc = protowire.AppendBytes(enc, protowire.AppendVarint(nil, 3))

	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	arr, err := got.GetUintArray(3)
	if err != nil {
		t.Fatalf("GetUintArray failed: %v", err)
	}
	if diff := cmp.Diff([]uint64{1, 2, 3}, arr); diff != "" {
		t.Errorf("Concatenated records mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_LearnDigest(t *testing.T) {
	sch, err := schema.New("mac_learn", 0, []schema.Field{
		{ID: 1, Name: "mac", Type: schema.TypeBytes, Width: 48},
		{ID: 2, Name: "ingress_port", Type: schema.TypeUint64, Width: 9},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}

	lrn := tabledata.NewLearn(sch)
	d := lrn.AllocateData()
	if err := d.SetBytes(1, []byte{0x00, 0x1b, 0x44, 0x11, 0x3a, 0xb7}); err != nil {
		t.Fatalf("SetBytes failed: %v", err)
	}
	if err := d.SetUint64(2, 12); err != nil {
		t.Fatalf("SetUint64 failed: %v", err)
	}

	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	got, err := DecodeLearn(lrn, enc)
	if err != nil {
		t.Fatalf("DecodeLearn() failed: %v", err)
	}

	if diff := cmp.Diff(snapshot(t, d), snapshot(t, got)); diff != "" {
		t.Errorf("Digest mismatch (-want +got):\n%s", diff)
	}
	if parent, err := got.ParentLearn(); err != nil || parent != lrn {
		t.Errorf("Expected decoded digest parented to the learn object (err=%v)", err)
	}
}

func TestDecode_RejectsUndeclaredField(t *testing.T) {
	small, err := schema.New("small", 0, []schema.Field{
		{ID: 1, Type: schema.TypeUint64, Width: 8},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}
	big, err := schema.New("big", 0, []schema.Field{
		{ID: 1, Type: schema.TypeUint64, Width: 8},
		{ID: 2, Type: schema.TypeUint64, Width: 8},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}

	d := tabledata.NewTable(big).AllocateData()
	if err := d.SetUint64(2, 5); err != nil {
		t.Fatalf("SetUint64 failed: %v", err)
	}
	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if _, err := Decode(tabledata.NewTable(small), enc); !errors.Is(err, tabledata.ErrInvalidField) {
		t.Errorf("Expected ErrInvalidField decoding undeclared field, got %v", err)
	}
}

func TestDecode_RejectsOutOfRangeValue(t *testing.T) {
	wide, err := schema.New("wide", 0, []schema.Field{
		{ID: 1, Type: schema.TypeUint64, Width: 16},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}
	narrow, err := schema.New("narrow", 0, []schema.Field{
		{ID: 1, Type: schema.TypeUint64, Width: 4},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}

	d := tabledata.NewTable(wide).AllocateData()
	if err := d.SetUint64(1, 4096); err != nil {
		t.Fatalf("SetUint64 failed: %v", err)
	}
	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	// Decoding replays the setters, so width validation still applies
	if _, err := Decode(tabledata.NewTable(narrow), enc); !errors.Is(err, tabledata.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange decoding oversized value, got %v", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	d := tbl.AllocateData()
	if err := d.SetString(8, "snapshot"); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	enc, err := Encode(d)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	for cut := 1; cut < len(enc); cut++ {
		if _, err := Decode(tbl, enc[:cut]); err == nil {
			t.Errorf("Expected error decoding %d of %d bytes", cut, len(enc))
		}
	}
}

func TestEncode_FieldNumberRange(t *testing.T) {
	s, err := schema.New("wide_ids", 0, []schema.Field{
		{ID: 1 << 30, Type: schema.TypeBool},
	})
	if err != nil {
		t.Fatalf("schema.New() failed: %v", err)
	}

	d := tabledata.NewTable(s).AllocateData()
	if err := d.SetBool(1<<30, true); err != nil {
		t.Fatalf("SetBool failed: %v", err)
	}

	// Field ids beyond the wire format's number range cannot be encoded
	if _, err := Encode(d); err == nil {
		t.Error("Expected error encoding out-of-range field number")
	}
}

func TestEncode_EmptyData(t *testing.T) {
	tbl := tabledata.NewTable(digestSchema(t))
	enc, err := Encode(tbl.AllocateData())
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if len(enc) != 0 {
		t.Errorf("Expected empty encoding for unwritten data, got %d bytes", len(enc))
	}

	got, err := Decode(tbl, enc)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if n := len(snapshot(t, got)); n != 0 {
		t.Errorf("Expected no readable fields, got %d", n)
	}
}
