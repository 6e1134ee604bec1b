// internal/models/factors.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TopFactor is one (feature name, impact) pair explaining a prediction.
// Impact is opaque: numbers are kept as json.Number so the literal survives
// storage unchanged.
type TopFactor struct {
	Name   string
	Impact interface{}
}

// TopFactors is the ranked factor list, encoded as [["name", value], ...].
type TopFactors []TopFactor

func (f TopFactor) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{f.Name, f.Impact})
}

func (f *TopFactor) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var pair []interface{}
	if err := dec.Decode(&pair); err != nil {
		return fmt.Errorf("top factor must be a [name, value] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("top factor must have 2 elements, got %d", len(pair))
	}
	name, ok := pair[0].(string)
	if !ok {
		return fmt.Errorf("top factor name must be a string, got %T", pair[0])
	}

	f.Name = name
	f.Impact = pair[1]
	return nil
}

// JSON renders the list in its canonical textual form.
func (fs TopFactors) JSON() (string, error) {
	data, err := json.Marshal(fs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
