package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"github.com/gpbraun/mdfluids/pkg/api"
)

func init() {
	gob.Register(tableBody{})
	gob.Register(redisTablePayload{})
	gob.Register(api.ReferenceResult{})
	gob.Register([]any(nil))
}

// RegisterCellType makes a custom handler result type storable in archived
// tables. Built-in numeric, string and slice types need no registration.
func RegisterCellType(v any) {
	gob.Register(v)
}

// EncodeValue serializes v with encoding/gob, boxed as an interface value so
// it can be decoded without knowing its concrete type.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a payload written by EncodeValue. Payloads encoded as a
// bare concrete T are accepted too.
func DecodeValue[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}

	var iv any
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv)
	if err == nil {
		v, ok := iv.(T)
		if !ok {
			return zero, fmt.Errorf("gob: decoded %T, want %T", iv, zero)
		}
		return v, nil
	}
	if !mustRetryAsConcrete(err) {
		return zero, err
	}

	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return zero, err
	}
	return v, nil
}

// mustRetryAsConcrete detects gob's interface-vs-concrete mismatch.
func mustRetryAsConcrete(err error) bool {
	s := err.Error()
	return strings.Contains(s, "can only be decoded from remote interface") &&
		strings.Contains(s, "received concrete type")
}

// tableBody is the stored form of everything in a table except the indexed
// columns (ID, composition, creation time).
type tableBody struct {
	StateProps [2]string
	Props      []string
	Inputs     [][2]float64
	Cells      [][]any
}

func encodeTableBody(t *api.Table) ([]byte, error) {
	data, err := EncodeValue(tableBody{
		StateProps: t.StateProps,
		Props:      t.Props,
		Inputs:     t.Inputs,
		Cells:      t.Cells,
	})
	if err != nil {
		return nil, fmt.Errorf("encode table %s: %w", t.ID, err)
	}
	return data, nil
}

func decodeTable(id, composition string, createdAt int64, data []byte) (*api.Table, error) {
	body, err := DecodeValue[tableBody](data)
	if err != nil {
		return nil, fmt.Errorf("decode table %s: %w", id, err)
	}
	return &api.Table{
		ID:          id,
		Composition: composition,
		StateProps:  body.StateProps,
		Props:       body.Props,
		Inputs:      body.Inputs,
		Cells:       body.Cells,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
	}, nil
}
