package malh

import (
	"fmt"
	"strconv"
	"strings"

	"malhdb/pkg/bits"
)

// ChVecItem says where one bit of the combined hash comes from: bit Bit of
// the hash of attribute Attr.
type ChVecItem struct {
	Attr uint32
	Bit  uint32
}

// ChVec is the choice vector: entry i gives the source of bit i of the
// combined hash. Fixed at relation creation.
type ChVec [MAXCHVEC]ChVecItem

// ParseChVec parses a textual choice vector of the form "a:b,a:b,...".
// Between 1 and 32 entries may be given; unspecified trailing entries are
// filled by cycling through the attributes, taking successive hash bits
// from each. Every entry must satisfy attr < nattrs and bit < 32.
func ParseChVec(nattrs uint32, spec string) (ChVec, error) {
	var cv ChVec
	if nattrs == 0 {
		return cv, fmt.Errorf("choice vector needs at least one attribute")
	}
	parts := strings.Split(strings.TrimSpace(spec), ",")
	if spec == "" || len(parts) == 0 {
		return cv, fmt.Errorf("empty choice vector")
	}
	if len(parts) > MAXCHVEC {
		return cv, fmt.Errorf("choice vector has %d entries, max is %d", len(parts), MAXCHVEC)
	}
	for i, part := range parts {
		attrStr, bitStr, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return cv, fmt.Errorf("malformed choice vector entry %q", part)
		}
		attr, err := strconv.ParseUint(attrStr, 10, 32)
		if err != nil {
			return cv, fmt.Errorf("malformed attribute in entry %q", part)
		}
		bit, err := strconv.ParseUint(bitStr, 10, 32)
		if err != nil {
			return cv, fmt.Errorf("malformed bit in entry %q", part)
		}
		if uint32(attr) >= nattrs {
			return cv, fmt.Errorf("entry %q references attribute %d of %d", part, attr, nattrs)
		}
		if bit >= bits.MaxBits {
			return cv, fmt.Errorf("entry %q references bit %d of a 32-bit hash", part, bit)
		}
		cv[i] = ChVecItem{Attr: uint32(attr), Bit: uint32(bit)}
	}
	// Fill the remainder round-robin so every attribute keeps contributing
	// address bits.
	for i := len(parts); i < MAXCHVEC; i++ {
		cv[i] = ChVecItem{
			Attr: uint32(i) % nattrs,
			Bit:  uint32(i) / nattrs,
		}
	}
	return cv, nil
}

// String renders the choice vector in its textual "a:b,a:b,..." form.
func (cv ChVec) String() string {
	var sb strings.Builder
	for i, item := range cv {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%d", item.Attr, item.Bit)
	}
	return sb.String()
}
