package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/navexpect/internal/ir"
)

// marshalAttrs converts attributes to canonical JSON TEXT for storage.
func marshalAttrs(attrs ir.Object) (string, error) {
	if attrs == nil {
		attrs = ir.Object{}
	}
	data, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttrs parses stored JSON TEXT. Integers go through json.Number
// so values above 2^53 survive.
func unmarshalAttrs(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return obj, nil
}
