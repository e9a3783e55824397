package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Common errors related to domain identifiers.
var (
	ErrInvalidID    = errors.New("invalid id")
	ErrNotInteger   = errors.New("not a decimal integer")
	ErrIDOutOfRange = errors.New("id out of range")
)

// -------------------------------
// Space
// -------------------------------

// Space defines the identifier space of the Chord ring.
//
// The identifier space is the set of integers in the range
// [0, 2^Bits - 1], arranged on a directed cycle. Identifiers are
// stored in big-endian format using ByteLen bytes.
//
// Fields:
//
//   - Bits: total number of bits in the identifier space. This is the
//     key size m: every node id and lookup key is taken modulo 2^Bits,
//     and finger tables have exactly Bits entries.
//
//   - ByteLen: number of bytes required to encode an identifier
//     of length Bits (computed as ceil(Bits / 8)).
//
// Centralizing the keyspace parameters here keeps identifier
// encoding, range validation, and the circular interval predicates
// consistent across the ring algorithms and the command layer.
type Space struct {
	Bits    int // Number of bits in the identifier space
	ByteLen int // Number of bytes needed to represent an identifier
}

// NewSpace initializes a new identifier space for the ring.
//
// Parameters:
//   - b: number of bits in the identifier space (the key size m).
//     Must be >= 1.
//
// Returns:
//   - Space: a fully initialized Space instance with derived parameters.
//   - error: if the key size is invalid.
func NewSpace(b int) (Space, error) {
	if b < 1 {
		return Space{}, fmt.Errorf("invalid key size: %d (must be >= 1)", b)
	}
	return Space{
		Bits:    b,
		ByteLen: (b + 7) / 8,
	}, nil
}

// Size returns the cardinality of the identifier space, 2^Bits.
func (sp Space) Size() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(sp.Bits))
}

// -------------------------------
// ID type and methods
// -------------------------------

// ID represents a unique identifier on the Chord ring.
//
// Identifiers are stored as a byte slice in **big-endian** format,
// meaning the most significant byte is at the lowest memory index.
// This choice ensures consistent ordering when comparing IDs as
// numbers, and aligns with the arithmetic operations described in
// the Chord paper (successor and finger target calculations).
//
// A nil ID is the "absent" value; it is how an unknown predecessor
// is represented.
type ID []byte

// FromUint64 converts a uint64 value into an identifier (ID)
// in the current identifier space.
//
// Behavior:
//   - The value is truncated to fit into sp.Bits bits
//     (i.e., only the least significant sp.Bits are kept).
//   - The result is returned as a big-endian byte slice of length sp.ByteLen.
//   - If Bits is not a multiple of 8, unused high-order bits in the
//     first byte are masked to zero.
func (sp Space) FromUint64(x uint64) ID {
	id := make(ID, sp.ByteLen)

	// Fill buffer from least significant byte, big-endian order
	for i := sp.ByteLen - 1; i >= 0 && x > 0; i-- {
		id[i] = byte(x & 0xFF)
		x >>= 8
	}

	// Mask unused high-order bits if identifier is not byte-aligned
	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		mask := byte(0xFF >> extraBits)
		id[0] &= mask
	}

	return id
}

// FromBigInt converts a non-negative big integer already known to be
// smaller than 2^Bits into an identifier. The value is copied
// right-aligned into a ByteLen buffer and the unused high-order bits
// are masked.
func (sp Space) FromBigInt(v *big.Int) ID {
	id := make(ID, sp.ByteLen)
	b := v.Bytes()
	if len(b) > sp.ByteLen {
		b = b[len(b)-sp.ByteLen:]
	}
	copy(id[sp.ByteLen-len(b):], b)

	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		mask := byte(0xFF >> extraBits)
		id[0] &= mask
	}
	return id
}

// FromDecimalString parses a decimal string into an ID, validating it
// against the current identifier space.
//
// Rules:
//   - The input must parse as a base-10 integer; otherwise
//     ErrNotInteger is returned.
//   - The parsed value must lie in [0, 2^Bits); otherwise
//     ErrIDOutOfRange is returned. Negative values are out of range.
func (sp Space) FromDecimalString(s string) (ID, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q: %w", s, ErrNotInteger)
	}
	if v.Sign() < 0 || v.Cmp(sp.Size()) >= 0 {
		return nil, fmt.Errorf("%q: %w", s, ErrIDOutOfRange)
	}
	return sp.FromBigInt(v), nil
}

// IsValidID verifies whether the given byte slice represents
// a valid identifier in the current identifier space.
//
// A valid ID must satisfy:
//  1. Its length matches sp.ByteLen.
//  2. If Bits is not byte-aligned, the unused high-order bits
//     in the first byte must be zero (i.e., ID < 2^Bits).
//
// Returns:
//   - nil if the ID is valid.
//   - ErrInvalidID if the ID is out of range or has invalid length.
func (sp Space) IsValidID(id []byte) error {
	// Check byte length
	if len(id) != sp.ByteLen {
		return ErrInvalidID
	}

	// Check unused bits in the most significant byte
	extraBits := sp.ByteLen*8 - sp.Bits
	if extraBits > 0 {
		// Mask to isolate the unused bits
		mask := byte(0xFF << (8 - extraBits))
		if id[0]&mask != 0 {
			return ErrInvalidID
		}
	}

	return nil
}

// ToBigInt converts the identifier into a non-negative integer.
// The ID is interpreted as a big-endian unsigned integer.
//
// Returns:
//   - *big.Int representing the numeric value of the ID.
//   - nil if the ID is nil.
func (x ID) ToBigInt() *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).SetBytes(x)
}

// Decimal returns the identifier rendered as a decimal string, the
// form used throughout the command language. A nil ID renders as
// "None", the textual form of an absent predecessor.
func (x ID) Decimal() string {
	if x == nil {
		return "None"
	}
	return x.ToBigInt().String()
}

// Cmp compares two identifiers in big-endian order.
//
// Returns:
//
//	-1 if x < b
//	 0 if x == b
//	+1 if x > b
//
// Note: comparison is purely byte-wise (big-endian), so IDs are
// treated as unsigned integers in the identifier space.
func (x ID) Cmp(b ID) int {
	return bytes.Compare(x, b)
}

// Equal reports whether two identifiers are exactly the same,
// comparing all bytes.
//
// Returns true if x and b have identical length and contents.
func (x ID) Equal(b ID) bool {
	return bytes.Equal(x, b)
}

// -------------------------------
// Circular interval predicates
// -------------------------------
//
// Every routing decision on the ring reduces to one of three interval
// membership tests over the circular order. Keeping the three variants
// next to each other avoids the off-by-one bugs at the endpoints.

// BetweenOpen reports whether x lies in the circular open interval
// (a, b): strictly after a and strictly before b going clockwise.
//
// Interval semantics:
//   - If a == b: the interval (a, a) covers the whole ring except a
//     itself, so the method returns true for every x != a.
//   - If a < b: linear case, a < x < b.
//   - If a > b: the interval wraps around zero; x > a or x < b.
func (x ID) BetweenOpen(a, b ID) bool {
	acmp := a.Cmp(x)  // a vs x
	xbcmp := x.Cmp(b) // x vs b
	abcmp := a.Cmp(b) // a vs b

	if abcmp == 0 {
		// (a, a) is the whole ring minus a
		return acmp != 0
	}
	if abcmp < 0 {
		// Linear case: a < b → (a, b)
		return acmp < 0 && xbcmp < 0
	}
	// Wrap-around case: a > b
	return acmp < 0 || xbcmp < 0
}

// Between reports whether x lies in the circular interval (a, b],
// open at a and closed at b.
//
// Interval semantics:
//   - If a == b: the interval (a, a] covers the entire ring, so the
//     method always returns true.
//   - If a < b: the interval is linear (a, b], i.e. strictly greater
//     than a and less than or equal to b.
//   - If a > b: the interval wraps around zero and includes all IDs
//     greater than a or less than or equal to b.
func (x ID) Between(a, b ID) bool {
	// Precompute comparisons
	acmp := a.Cmp(x)  // a vs x
	xbcmp := x.Cmp(b) // x vs b
	abcmp := a.Cmp(b) // a vs b

	if abcmp == 0 {
		// (a, a] means the whole ring
		return true
	}
	if abcmp < 0 {
		// Linear case: a < b → (a, b]
		return acmp < 0 && xbcmp <= 0
	}
	// Wrap-around case: a > b
	return acmp < 0 || xbcmp <= 0
}

// BetweenLeftClosed reports whether x lies in the circular interval
// [a, b), closed at a and open at b.
//
// Interval semantics mirror Between: [a, a) covers the entire ring.
func (x ID) BetweenLeftClosed(a, b ID) bool {
	acmp := a.Cmp(x)  // a vs x
	xbcmp := x.Cmp(b) // x vs b
	abcmp := a.Cmp(b) // a vs b

	if abcmp == 0 {
		// [a, a) means the whole ring
		return true
	}
	if abcmp < 0 {
		// Linear case: a < b → [a, b)
		return acmp <= 0 && xbcmp < 0
	}
	// Wrap-around case: a > b
	return acmp <= 0 || xbcmp < 0
}

// -------------------------------
// Modular arithmetic
// -------------------------------

// AddPow2 computes (a + 2^i) modulo 2^Bits, the target of finger
// table entry i for a node with identifier a.
//
// Returns an error if a is not a valid ID for this space or if the
// exponent does not address a finger entry (i outside [0, Bits)).
func (sp Space) AddPow2(a ID, i int) (ID, error) {
	if err := sp.IsValidID(a); err != nil {
		return nil, fmt.Errorf("invalid ID a: %w", err)
	}
	if i < 0 || i >= sp.Bits {
		return nil, fmt.Errorf("finger exponent %d outside [0,%d)", i, sp.Bits)
	}

	sum := new(big.Int).Lsh(big.NewInt(1), uint(i))
	sum.Add(sum, a.ToBigInt())
	sum.Mod(sum, sp.Size())

	return sp.FromBigInt(sum), nil
}

// FormatList renders a sequence of identifiers as decimal values
// joined by the given separator.
func FormatList(ids []ID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Decimal()
	}
	return strings.Join(parts, sep)
}
