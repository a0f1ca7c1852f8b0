package schema

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// defFile mirrors the YAML schema definition layout:
//
//	table: ipv4_host
//	action_id: 7
//	fields:
//	  - id: 1
//	    name: port
//	    type: uint64
//	    width: 9
//	  - id: 5
//	    name: counters
//	    type: container
//	    members: [6, 7]
type defFile struct {
	Table    string     `yaml:"table"`
	ActionID uint32     `yaml:"action_id"`
	Fields   []defField `yaml:"fields"`
}

type defField struct {
	ID      uint32   `yaml:"id"`
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Width   int      `yaml:"width"`
	Oneof   uint32   `yaml:"oneof"`
	Members []uint32 `yaml:"members"`
}

// Parse builds a schema from a YAML definition document.
func Parse(doc []byte) (*Schema, error) {
	var def defFile
	if err := yaml.Unmarshal(doc, &def); err != nil {
		return nil, errors.Wrap(err, "parsing schema definition")
	}

	fields := make([]Field, 0, len(def.Fields))
	for _, df := range def.Fields {
		ft, err := parseType(df.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "schema %s: field %d", def.Table, df.ID)
		}
		members := make([]FieldID, 0, len(df.Members))
		for _, m := range df.Members {
			members = append(members, FieldID(m))
		}
		fields = append(fields, Field{
			ID:      FieldID(df.ID),
			Name:    df.Name,
			Type:    ft,
			Width:   df.Width,
			Oneof:   df.Oneof,
			Members: members,
		})
	}

	return New(def.Table, def.ActionID, fields)
}

// Load builds a schema from a YAML definition stream.
func Load(r io.Reader) (*Schema, error) {
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading schema definition")
	}
	return Parse(doc)
}

func parseType(s string) (FieldType, error) {
	switch s {
	case "uint64":
		return TypeUint64, nil
	case "bytes":
		return TypeBytes, nil
	case "uint_array":
		return TypeUintArray, nil
	case "bool_array":
		return TypeBoolArray, nil
	case "string_array":
		return TypeStringArray, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "string":
		return TypeString, nil
	case "container":
		return TypeContainer, nil
	}
	return 0, errors.Errorf("unknown field type %q", s)
}
