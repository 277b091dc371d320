package record

import (
	"encoding/json"
	"fmt"

	"alihamza/deceptron/internal/recordstore"
)

// toDocument converts a domain struct to a store document via its JSON
// form. Fields tagged `json:"-"` (the credential hash) are deliberately
// not carried here; callers that must persist them set the field on the
// document explicitly.
func toDocument(v any) (recordstore.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("map to document: %w", err)
	}
	var doc recordstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("map to document: %w", err)
	}
	return doc, nil
}

// fromDocument decodes a store document into the given struct pointer.
func fromDocument(doc recordstore.Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("map from document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("map from document: %w", err)
	}
	return nil
}
