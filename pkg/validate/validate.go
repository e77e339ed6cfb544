// Package validate decodes and checks inbound add and query payloads.
// Decoding failures are ProtocolErrors; everything after a successful decode
// is reported as a ValidationError naming the offending field.
package validate

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"regexp"
	"strconv"

	"github.com/papercomputeco/vecgate/pkg/utils"
)

// Field names as they appear on the wire.
const (
	FieldCollection  = "collection"
	FieldIDs         = "ids"
	FieldVectors     = "vectors"
	FieldVector      = "vector"
	FieldReturnCount = "return_count"
)

const (
	minCollectionName = 3
	maxCollectionName = 63
)

// maxShownValue bounds how much of an offending value is echoed back in messages.
const maxShownValue = 256

// idPattern is \w+ over Unicode: letters, digits and underscore. A trailing
// newline is rejected.
var idPattern = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)

// Payload is a decoded request body whose fields have not yet been checked.
type Payload map[string]json.RawMessage

// AddRequest is a validated add payload. IDs and Vectors are paired by index.
type AddRequest struct {
	Collection string
	IDs        []string
	Vectors    [][]float32
}

// Len returns the number of entries.
func (r *AddRequest) Len() int {
	return len(r.IDs)
}

// QueryRequest is a validated query payload.
type QueryRequest struct {
	Collection  string
	Vector      []float32
	ReturnCount int
}

// DecodePayload parses body as a JSON object.
func DecodePayload(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil || p == nil {
		return nil, &ProtocolError{Reason: "Request does not contain valid JSON", Err: err}
	}
	return p, nil
}

// ValidateAdd checks an add payload, failing at the first offending entry.
func ValidateAdd(p Payload) (*AddRequest, error) {
	name, err := collection(p)
	if err != nil {
		return nil, err
	}

	rawIDs, idsOK := p[FieldIDs]
	rawVectors, vectorsOK := p[FieldVectors]
	if !idsOK || !vectorsOK || isNull(rawIDs) || isNull(rawVectors) {
		return nil, invalid(FieldIDs, "ids and vectors are required")
	}

	var ids []json.RawMessage
	if err := json.Unmarshal(rawIDs, &ids); err != nil {
		return nil, invalid(FieldIDs, "ids must be a list, got %s", rawIDs)
	}
	var vectors []json.RawMessage
	if err := json.Unmarshal(rawVectors, &vectors); err != nil {
		return nil, invalid(FieldVectors, "vectors must be a list, got %s", rawVectors)
	}

	if len(ids) != len(vectors) {
		return nil, invalid(FieldIDs, "IDs and vectors must have the same length")
	}

	req := &AddRequest{
		Collection: name,
		IDs:        make([]string, len(ids)),
		Vectors:    make([][]float32, len(vectors)),
	}

	for i, raw := range ids {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || !idPattern.MatchString(id) {
			return nil, invalid(FieldIDs, `Invalid ID at index %d: %s (IDs must be strings that match the pattern \w+)`, i, shown(raw))
		}
		req.IDs[i] = id

		v, ok := numbers(vectors[i])
		if !ok {
			return nil, invalid(FieldVectors, "Invalid vector at index %d: %s (Vectors must be non-empty lists of numbers)", i, shown(vectors[i]))
		}
		req.Vectors[i] = v
	}

	return req, nil
}

// ValidateQuery checks a query payload.
func ValidateQuery(p Payload) (*QueryRequest, error) {
	name, err := collection(p)
	if err != nil {
		return nil, err
	}

	raw, ok := p[FieldVector]
	if !ok || isNull(raw) {
		return nil, invalid(FieldVector, "vector is required")
	}
	v, ok := numbers(raw)
	if !ok {
		return nil, invalid(FieldVector, "Invalid vector: %s (Vectors must be non-empty lists of numbers)", shown(raw))
	}

	k, ok := positiveInt(p[FieldReturnCount])
	if !ok {
		return nil, invalid(FieldReturnCount, "return_count must be a positive integer")
	}

	return &QueryRequest{Collection: name, Vector: v, ReturnCount: k}, nil
}

// ValidateCollectionName reports whether name can be used as a collection name:
// 3 to 63 characters, starting and ending with a lowercase letter or digit,
// otherwise letters, digits, dots, dashes and underscores, no "..", and not an IPv4 address.
func ValidateCollectionName(name string) bool {
	if len(name) < minCollectionName || len(name) > maxCollectionName {
		return false
	}
	if !isLowerAlnum(name[0]) || !isLowerAlnum(name[len(name)-1]) {
		return false
	}
	for i := 1; i < len(name)-1; i++ {
		c := name[i]
		switch {
		case isLowerAlnum(c), c >= 'A' && c <= 'Z', c == '-', c == '_':
		case c == '.':
			if name[i+1] == '.' {
				return false
			}
		default:
			return false
		}
	}
	if addr, err := netip.ParseAddr(name); err == nil && addr.Is4() {
		return false
	}
	return true
}

func collection(p Payload) (string, error) {
	var name string
	raw, ok := p[FieldCollection]
	if !ok || json.Unmarshal(raw, &name) != nil || !ValidateCollectionName(name) {
		return "", invalid(FieldCollection, "Collection name is missing or invalid")
	}
	return name, nil
}

func shown(raw json.RawMessage) string {
	return utils.Truncate(string(raw), maxShownValue)
}

func isLowerAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// numbers decodes a non-empty JSON array of numbers.
func numbers(raw json.RawMessage) ([]float32, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return nil, false
	}
	out := make([]float32, len(elems))
	for i, e := range elems {
		var f float64
		if isNull(e) || json.Unmarshal(e, &f) != nil {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}

// positiveInt accepts a JSON integer greater than zero. 3.0 and "3" are rejected.
func positiveInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(raw), 10, strconv.IntSize)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int(n), true
}
