package wire

import (
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/actgraph/internal/domain"
)

// DecodeTraversal maps traversal rows to facts and objects by shape. Rows
// that are neither, such as property values, are kept raw.
func DecodeTraversal(raw json.RawMessage) ([]domain.TraversalElement, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode traversal: %w", err)
	}

	out := make([]domain.TraversalElement, 0, len(rows))
	for _, row := range rows {
		el, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func decodeRow(row json.RawMessage) (domain.TraversalElement, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(row, &keys); err != nil {
		return domain.TraversalElement{Raw: row}, nil
	}

	if isFactRow(keys) {
		f, err := DecodeFact(row)
		if err != nil {
			return domain.TraversalElement{}, fmt.Errorf("decode traversal fact: %w", err)
		}
		return domain.TraversalElement{Fact: f}, nil
	}

	_, hasType := keys["type"]
	_, hasValue := keys["value"]
	if hasType && hasValue {
		o, err := DecodeObject(row)
		if err != nil {
			return domain.TraversalElement{}, fmt.Errorf("decode traversal object: %w", err)
		}
		return domain.TraversalElement{Object: o}, nil
	}

	return domain.TraversalElement{Raw: row}, nil
}

func isFactRow(keys map[string]json.RawMessage) bool {
	for _, k := range []string{"sourceObject", "destinationObject", "inReferenceTo", "accessMode"} {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}
