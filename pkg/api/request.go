package api

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NoIndex marks a request without an output index.
const NoIndex = -1

// PropertyRequest is a parsed property token.
type PropertyRequest struct {
	Property   PropertyMetadata
	Index      int
	Normalized bool
}

// HasIndex reports whether the request selects one element of a vector
// result.
func (r PropertyRequest) HasIndex() bool { return r.Index >= 0 }

// Raw returns the request without the normalization flag.
func (r PropertyRequest) Raw() PropertyRequest {
	r.Normalized = false
	return r
}

// String formats the request back into its canonical token.
func (r PropertyRequest) String() string {
	var b strings.Builder
	b.WriteString(r.Property.Key)
	if r.HasIndex() {
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(r.Index))
		b.WriteByte(')')
	}
	if r.Normalized {
		b.WriteByte('*')
	}
	return b.String()
}

var propertyPattern = regexp.MustCompile(`^([A-Z_][A-Z0-9_]*)(?:\(([0-9]+)\))?(\*)?$`)

// ParsePropertyString parses a BASE(index)?*? token and resolves BASE in
// props. Grammar errors wrap ErrInvalidFormat, unknown properties wrap
// ErrNotFound.
func ParsePropertyString(props *PropertyRegistry, token string) (PropertyRequest, error) {
	m := propertyPattern.FindStringSubmatch(strings.ToUpper(token))
	if m == nil {
		return PropertyRequest{}, fmt.Errorf("%w: %q", ErrInvalidFormat, token)
	}

	index := NoIndex
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return PropertyRequest{}, fmt.Errorf("%w: %q: index: %v", ErrInvalidFormat, token, err)
		}
		index = n
	}

	meta, err := props.Get(m[1])
	if err != nil {
		return PropertyRequest{}, err
	}

	return PropertyRequest{
		Property:   meta,
		Index:      index,
		Normalized: m[3] != "",
	}, nil
}

// ParsePropertyStrings parses every token, failing on the first error.
func ParsePropertyStrings(props *PropertyRegistry, tokens ...string) ([]PropertyRequest, error) {
	out := make([]PropertyRequest, 0, len(tokens))
	for _, token := range tokens {
		req, err := ParsePropertyString(props, token)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}
