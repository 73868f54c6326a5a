package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MaxIssue is the protocol-defined upper bound on any asset's total
// supply: 2^64 - 1.
const MaxIssue = Amount(math.MaxUint64)

// Amount is an asset quantity. It is serialized as a decimal string so
// values near 2^64-1 survive JSON encoders that round large numbers.
type Amount uint64

// ParseAmount parses a decimal string into an Amount.
// Values above 2^64-1 or non-decimal input are rejected.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: must be a decimal integer in [0, %d]", s, uint64(MaxIssue))
	}
	return Amount(v), nil
}

// String returns the decimal representation.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// CheckedAdd returns a+b and reports whether the sum stayed within 2^64-1.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	if uint64(a) > math.MaxUint64-uint64(b) {
		return 0, false
	}
	return a + b, true
}

// CheckedSub returns a-b and reports whether b was at most a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a decimal string (or bare number) into an amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Tolerate bare numbers from older records.
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr == nil {
			*a = Amount(n)
			return nil
		}
		return err
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
