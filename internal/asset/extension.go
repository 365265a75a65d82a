package asset

import (
	"encoding/json"
	"fmt"
)

// ExtensionJSON returns the JSON form of an extension value. The glTF
// decoder keeps unregistered extensions as json.RawMessage; any other
// value is re-encoded.
func ExtensionJSON(v any) ([]byte, error) {
	switch raw := v.(type) {
	case json.RawMessage:
		return raw, nil
	case []byte:
		return raw, nil
	default:
		return json.Marshal(v)
	}
}

// UnmarshalExtension decodes ext[name] into dst. found is false when the
// extension is absent.
func UnmarshalExtension(ext map[string]any, name string, dst any) (found bool, err error) {
	v, ok := ext[name]
	if !ok || v == nil {
		return false, nil
	}
	b, err := ExtensionJSON(v)
	if err != nil {
		return true, fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return true, fmt.Errorf("%s: %w", name, err)
	}
	return true, nil
}
