package index

import (
	"encoding/json"
	"fmt"
	"math"
)

// KeyType names the key type of a value index.
type KeyType string

// Supported key types.
const (
	KeyTypeString KeyType = "string"
	KeyTypeInt64  KeyType = "int64"
)

// Valid reports whether t is a supported key type.
func (t KeyType) Valid() bool {
	return t == KeyTypeString || t == KeyTypeInt64
}

// coerceString converts a JSON scalar to a string key.
func coerceString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

// coerceInt64 converts a JSON scalar to an int64 key. JSON numbers decode
// to float64 under encoding/json; only integral values are accepted.
func coerceInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("cannot convert non-integral number %v to int64", x)
		}
		return int64(x), nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64: %w", x.String(), err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}
