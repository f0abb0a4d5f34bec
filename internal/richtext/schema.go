package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidContent is returned when a document body does not match the
// rich-text shape.
var ErrInvalidContent = errors.New("invalid rich-text content")

const schemaURL = "https://esign.local/schemas/richtext-doc.schema.json"

const docSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "mark": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "attrs": {"type": "object"}
      }
    },
    "node": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "text": {"type": "string"},
        "attrs": {"type": "object"},
        "marks": {"type": "array", "items": {"$ref": "#/$defs/mark"}},
        "content": {"type": "array", "items": {"$ref": "#/$defs/node"}}
      }
    }
  },
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"const": "doc"},
    "content": {"type": "array", "items": {"$ref": "#/$defs/node"}}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(docSchema)); err != nil {
			compileErr = fmt.Errorf("richtext schema load failed: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks that raw is a rich-text document.
func Validate(raw []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrInvalidContent)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}
