package codec

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads one YAML document into the canonical input vocabulary.
// yaml.v3 already yields string-keyed maps for string keys; integers come
// through as int, which the numeric coercions accept directly.
func DecodeYAML(r io.Reader) (any, error) {
	var v any
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalYAML is DecodeYAML over a byte slice.
func UnmarshalYAML(data []byte) (any, error) {
	return DecodeYAML(bytes.NewReader(data))
}

// EncodeYAML writes a validated output tree as YAML, lowering sets,
// any-keyed maps, decimals and number literals to shapes yaml.v3 encodes
// natively.
func EncodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(lower(v, true))
}

// MarshalYAML is EncodeYAML into a byte slice.
func MarshalYAML(v any) ([]byte, error) {
	return yaml.Marshal(lower(v, true))
}
