package codec

import (
	"encoding/json"
)

// Default is the codec used for newly saved results.
var Default Codec = GoJSON{}

// JSON is the standard-library JSON codec. Results it writes decode with
// GoJSON and vice versa.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
