package malh

import (
	"fmt"
	"strings"

	"malhdb/pkg/bits"
)

// Tuple is an ordered sequence of attribute values. On disk a tuple is its
// comma-separated form followed by a single NUL byte.
type Tuple []string

// ParseTuple parses a comma-separated tuple string, checking that it has
// exactly nattrs non-empty fields and that no field contains a comma or the
// wildcard character.
func ParseTuple(s string, nattrs uint32) (Tuple, error) {
	vals := strings.Split(s, ",")
	if uint32(len(vals)) != nattrs {
		return nil, fmt.Errorf("tuple %q has %d attributes, expected %d", s, len(vals), nattrs)
	}
	for _, val := range vals {
		if val == "" {
			return nil, fmt.Errorf("tuple %q has an empty attribute", s)
		}
		if strings.Contains(val, Wildcard) {
			return nil, fmt.Errorf("tuple %q contains the reserved character %q", s, Wildcard)
		}
	}
	return Tuple(vals), nil
}

// String returns the tuple's comma-separated form.
func (t Tuple) String() string {
	return strings.Join(t, ",")
}

// Hash assembles the tuple's combined hash: bit i of the result is bit
// cv[i].Bit of the hash of attribute cv[i].Attr.
func (t Tuple) Hash(cv ChVec) uint32 {
	hashes := make([]uint32, len(t))
	hashed := make([]bool, len(t))
	var combined uint32
	for i, item := range cv {
		if !hashed[item.Attr] {
			hashes[item.Attr] = HashAttr(t[item.Attr])
			hashed[item.Attr] = true
		}
		if bits.IsSet(hashes[item.Attr], uint(item.Bit)) {
			combined = bits.Set(combined, uint(i))
		}
	}
	return combined
}

// Pattern is a query tuple: each field is either a literal attribute value
// or the wildcard "?".
type Pattern []string

// ParsePattern parses a comma-separated query pattern with exactly nattrs
// fields, each a non-empty literal or the wildcard.
func ParsePattern(s string, nattrs uint32) (Pattern, error) {
	vals := strings.Split(s, ",")
	if uint32(len(vals)) != nattrs {
		return nil, fmt.Errorf("pattern %q has %d attributes, expected %d", s, len(vals), nattrs)
	}
	for _, val := range vals {
		if val == "" {
			return nil, fmt.Errorf("pattern %q has an empty attribute", s)
		}
		if val != Wildcard && strings.Contains(val, Wildcard) {
			return nil, fmt.Errorf("pattern field %q mixes the wildcard with a literal", val)
		}
	}
	return Pattern(vals), nil
}

// Matches reports whether the tuple satisfies the pattern: same field
// count, and every non-wildcard field equal byte for byte.
func (p Pattern) Matches(t Tuple) bool {
	if len(p) != len(t) {
		return false
	}
	for i, field := range p {
		if field == Wildcard {
			continue
		}
		if field != t[i] {
			return false
		}
	}
	return true
}
