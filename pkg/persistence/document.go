package persistence

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/getmockd/kbase/pkg/entity"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/snapshot.schema.json
var snapshotSchemaJSON string

var (
	schemaOnce     sync.Once
	snapshotSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("snapshot.schema.json", strings.NewReader(snapshotSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add snapshot schema: %w", err)
			return
		}
		snapshotSchema, schemaErr = compiler.Compile("snapshot.schema.json")
	})
	return snapshotSchema, schemaErr
}

// Encode renders the collections as a YAML document. Map keys are sorted, so
// equal collections always produce identical bytes.
func Encode(c entity.Collections) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(c.Clone()); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	quoteMergeKeys(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// quoteMergeKeys double-quotes every "<<" scalar. Written plain, "<<" reads
// back as a YAML merge key instead of a record name.
func quoteMergeKeys(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Value == "<<" {
		n.Tag = "!!str"
		n.Style = yaml.DoubleQuotedStyle
		return
	}
	for _, child := range n.Content {
		quoteMergeKeys(child)
	}
}

// Decode parses a YAML snapshot document. Documents that do not have the
// four-collection shape are rejected with ErrMalformed. An empty document is
// an empty store.
func Decode(data []byte) (entity.Collections, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return entity.Collections{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return entity.NewCollections(), nil
	}
	if err := validateShape(raw); err != nil {
		return entity.Collections{}, err
	}

	var c entity.Collections
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return entity.Collections{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c = c.Clone()
	if err := checkNames(c); err != nil {
		return entity.Collections{}, err
	}
	return c, nil
}

// validateShape checks a generic YAML value against the snapshot schema. The
// value goes through JSON first so the validator only sees JSON types.
func validateShape(raw any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var inst any
	if err := json.Unmarshal(data, &inst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrMalformed, firstCause(ve))
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func firstCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}

// checkNames verifies that every record is filed under its own name.
func checkNames(c entity.Collections) error {
	for key, rec := range c.Locations {
		if key != rec.Name {
			return nameMismatch("locations", key, rec.Name)
		}
	}
	for key, rec := range c.Viewpoints {
		if key != rec.Name {
			return nameMismatch("viewpoints", key, rec.Name)
		}
	}
	for key, rec := range c.Objects {
		if key != rec.Name {
			return nameMismatch("objects", key, rec.Name)
		}
	}
	for key, rec := range c.Persons {
		if key != rec.Name {
			return nameMismatch("persons", key, rec.Name)
		}
	}
	return nil
}

func nameMismatch(collection, key, name string) error {
	return fmt.Errorf("%w: %s entry %q has name %q", ErrMalformed, collection, key, name)
}
