package sqlz

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Schema is a list of entity type declarations, in registration order:
//
//	types:
//	  - name: User
//	    table: users
//	    columns: [name, email]
//	    foreign_keys:
//	      - {column: team, type: Team}
//	    relations:
//	      friends: [user_a, user_b]
type Schema struct {
	Types []TypeDef `yaml:"types"`
}

// LoadSchema reads a YAML schema.
func LoadSchema(r io.Reader) (*Schema, error) {
	var schema Schema

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	return &schema, nil
}

// ParseSchema parses a YAML schema.
func ParseSchema(data []byte) (*Schema, error) {
	return LoadSchema(bytes.NewReader(data))
}
