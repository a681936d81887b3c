package docstore

import (
	"encoding/json"
	"fmt"
)

// Encode converts a JSON-tagged struct into document fields.
func Encode(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return fields, nil
}

// Decode fills the JSON-tagged struct v from doc's fields.
func Decode(doc *Document, v any) error {
	return DecodeFields(doc.Fields, v)
}

// DecodeFields fills the JSON-tagged struct v from fields.
func DecodeFields(fields Fields, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}
