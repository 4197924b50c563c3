package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Document names one of the embedded schemas.
type Document string

const (
	GateReport   Document = "gate_report.schema.json"
	EvolutionMap Document = "evolution_map.schema.json"
	ThreadIndex  Document = "thread_index.schema.json"
	Correlation  Document = "correlation.schema.json"
)

var (
	//go:embed gate_report.schema.json
	gateReportSchemaJSON string
	//go:embed evolution_map.schema.json
	evolutionMapSchemaJSON string
	//go:embed thread_index.schema.json
	threadIndexSchemaJSON string
	//go:embed correlation.schema.json
	correlationSchemaJSON string
)

var sources = map[Document]string{
	GateReport:   gateReportSchemaJSON,
	EvolutionMap: evolutionMapSchemaJSON,
	ThreadIndex:  threadIndexSchemaJSON,
	Correlation:  correlationSchemaJSON,
}

var (
	compileOnce     sync.Once
	compiledSchemas map[Document]*jsonschema.Schema
	compileErr      error
)

// ValidateJSON checks raw JSON against the named schema.
func ValidateJSON(doc Document, raw []byte) error {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", doc, err)
	}
	schema, err := load(doc)
	if err != nil {
		return err
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("%s validation failed: %w", strings.TrimSuffix(string(doc), ".schema.json"), err)
	}
	return nil
}

// Validate marshals v and checks it against the named schema.
func Validate(doc Document, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc, err)
	}
	return ValidateJSON(doc, raw)
}

func load(doc Document) (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		for name, src := range sources {
			if err := compiler.AddResource(string(name), strings.NewReader(src)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
		}

		compiled := make(map[Document]*jsonschema.Schema, len(sources))
		for name := range sources {
			schema, err := compiler.Compile(string(name))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = schema
		}
		compiledSchemas = compiled
	})

	if compileErr != nil {
		return nil, compileErr
	}
	schema, ok := compiledSchemas[doc]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", doc)
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("document contains trailing content")
	}
	return value, nil
}
