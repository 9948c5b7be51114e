// Package record defines the raw workflow-engine event as it arrives from the
// partitioned log, a lazy JSON accessor over its payload, and the admission
// and key-extraction rules applied before events are grouped into batches.
package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformedPayload = errors.New("record: malformed JSON payload")
	ErrFieldMissing     = errors.New("record: required field missing")
)

// RawEvent is a single record read from the export log. The payload is kept
// opaque; fields are pulled out on demand through Document. Immutable once
// read.
type RawEvent struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       string
	Value     []byte

	// Arrived is the processing time at which the event was fetched. It
	// drives window assignment, not any timestamp embedded in the payload.
	Arrived time.Time
}

// Document is a parsed view over a RawEvent payload. It is the path-query
// primitive used everywhere fields are read out of event JSON: extract the
// field at a path, typed, failing if absent.
type Document struct {
	root gjson.Result
}

// Parse validates and parses an event payload.
func Parse(value []byte) (Document, error) {
	if !gjson.ValidBytes(value) {
		return Document{}, ErrMalformedPayload
	}
	return Document{root: gjson.ParseBytes(value)}, nil
}

// String returns the string field at path.
func (d Document) String(path string) (string, error) {
	res := d.root.Get(path)
	if !res.Exists() {
		return "", fmt.Errorf("%w: %s", ErrFieldMissing, path)
	}
	return res.String(), nil
}

// Int returns the integer field at path.
func (d Document) Int(path string) (int64, error) {
	res := d.root.Get(path)
	if !res.Exists() {
		return 0, fmt.Errorf("%w: %s", ErrFieldMissing, path)
	}
	return res.Int(), nil
}

// Lookup returns the raw result at path and whether it exists.
func (d Document) Lookup(path string) (gjson.Result, bool) {
	res := d.root.Get(path)
	return res, res.Exists()
}

// Collect walks the subtree at path and gathers every value stored under the
// given field name, at any depth.
func (d Document) Collect(path, field string) []string {
	sub := d.root.Get(path)
	if !sub.Exists() {
		return nil
	}
	var out []string
	collect(sub, field, &out)
	return out
}

func collect(res gjson.Result, field string, out *[]string) {
	res.ForEach(func(key, value gjson.Result) bool {
		if key.String() == field {
			*out = append(*out, value.String())
		}
		if value.IsObject() || value.IsArray() {
			collect(value, field, out)
		}
		return true
	})
}

// Raw returns the document's JSON text, for logging offending records.
func (d Document) Raw() string {
	return d.root.Raw
}
