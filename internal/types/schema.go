package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// inputSchemaJSON 约束持久化/导出的参数结构。
const inputSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["length", "close_length", "band_range_rate", "overflow", "profit_rate_trigger", "ratio"],
  "properties": {
    "length":       {"type": "integer", "minimum": 2},
    "close_length": {"type": "integer", "minimum": 2},
    "band_range_rate": {
      "type": "object",
      "additionalProperties": false,
      "required": ["min"],
      "properties": {"min": {"type": "integer", "minimum": 0}}
    },
    "overflow":            {"type": "integer", "minimum": 0},
    "profit_rate_trigger": {"type": "number"},
    "ratio":               {"type": "number", "minimum": 0}
  }
}`

const inputSchemaURL = "input.schema.json"

var (
	inputSchemaOnce sync.Once
	inputSchema     *jsonschema.Schema
	inputSchemaErr  error
)

func compiledInputSchema() (*jsonschema.Schema, error) {
	inputSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(inputSchemaURL, strings.NewReader(inputSchemaJSON)); err != nil {
			inputSchemaErr = err
			return
		}
		inputSchema, inputSchemaErr = compiler.Compile(inputSchemaURL)
	})
	return inputSchema, inputSchemaErr
}

// ValidateInputPayload 按 schema 校验一段 input JSON。
func ValidateInputPayload(raw []byte) error {
	schema, err := compiledInputSchema()
	if err != nil {
		return fmt.Errorf("compile input schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid input payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid input payload: %w", err)
	}
	return nil
}
