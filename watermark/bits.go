// Package watermark implements echo-hiding embedding and cepstral detection
package watermark

import (
	"fmt"
	"strings"
)

// Bit is a single watermark or key bit, always 0 or 1
type Bit uint8

// BitSequence is an ordered run of bits indexed by frame
type BitSequence []Bit

// Extend repeats every bit r consecutive times
func (s BitSequence) Extend(r int) BitSequence {
	if r <= 1 {
		out := make(BitSequence, len(s))
		copy(out, s)
		return out
	}

	out := make(BitSequence, 0, len(s)*r)
	for _, b := range s {
		for range r {
			out = append(out, b)
		}
	}
	return out
}

// Validate reports the first element that is not 0 or 1
func (s BitSequence) Validate() error {
	for i, b := range s {
		if b > 1 {
			return fmt.Errorf("invalid bit %d at index %d", b, i)
		}
	}
	return nil
}

func (s BitSequence) String() string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range s {
		sb.WriteByte('0' + byte(b))
	}
	return sb.String()
}

// ParseBitString reads a compact "0101..." form. Whitespace and commas are ignored.
func ParseBitString(s string) (BitSequence, error) {
	bits := make(BitSequence, 0, len(s))
	for i, r := range s {
		switch r {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		case ' ', '\t', '\n', '\r', ',':
		default:
			return nil, fmt.Errorf("invalid bit character %q at offset %d", r, i)
		}
	}
	return bits, nil
}
