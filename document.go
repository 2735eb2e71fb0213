package ripext

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// documentJSON keeps numbers as their literal text so large integers survive
var documentJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Document parsed json response body
type Document struct {
	raw   []byte
	value interface{}
}

// ParseDocument parses raw as a json object or array.
// Empty, malformed and scalar documents yield nil, never an error.
func ParseDocument(raw []byte) *Document {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil
	}
	var value interface{}
	if err := documentJSON.Unmarshal(trimmed, &value); err != nil {
		return nil
	}
	doc := &Document{
		raw:   make([]byte, len(trimmed)),
		value: value,
	}
	copy(doc.raw, trimmed)
	return doc
}

// Value decoded value, map[string]interface{} or []interface{}.
// Numbers are json.Number values.
func (d *Document) Value() interface{} {
	return d.value
}

// Raw json text of the document
func (d *Document) Raw() []byte {
	return d.raw
}

func (d *Document) IsObject() bool {
	_, ok := d.value.(map[string]interface{})
	return ok
}

func (d *Document) IsArray() bool {
	_, ok := d.value.([]interface{})
	return ok
}

// Object document as a map, nil for arrays
func (d *Document) Object() map[string]interface{} {
	m, _ := d.value.(map[string]interface{})
	return m
}

// Array document as a slice, nil for objects
func (d *Document) Array() []interface{} {
	a, _ := d.value.([]interface{})
	return a
}

// Get looks up a gjson path such as "data.items.0.name"
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Decode copies the document into out, a pointer to a struct, map or slice
func (d *Document) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(d.value)
}

func (d *Document) String() string {
	return string(d.raw)
}
