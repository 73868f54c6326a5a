// Package asset computes content-addressed asset identifiers from an
// issuer identity and a human-readable asset description.
package asset

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the name, symbol, and description fields in the
// serialized form. Name and symbol must not contain it; the description
// may, since deserialization splits only at the first two occurrences.
const Delimiter = "|"

// Symbol length bounds in characters.
const (
	MinSymbolLen = 2
	MaxSymbolLen = 10
)

// Description validation errors.
var (
	ErrEmptyName      = errors.New("asset name is empty")
	ErrBadSymbol      = errors.New("asset symbol length out of range")
	ErrDelimiterInUse = errors.New("field contains the reserved delimiter")
)

// Description is the human-readable tuple bound into an asset identifier.
type Description struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// Validate checks the description fields before serialization.
func (d Description) Validate() error {
	if d.Name == "" {
		return ErrEmptyName
	}
	if l := len(d.Symbol); l < MinSymbolLen || l > MaxSymbolLen {
		return fmt.Errorf("%w: must be %d-%d characters, got %d", ErrBadSymbol, MinSymbolLen, MaxSymbolLen, len(d.Symbol))
	}
	if strings.Contains(d.Name, Delimiter) {
		return fmt.Errorf("%w: name %q", ErrDelimiterInUse, d.Name)
	}
	if strings.Contains(d.Symbol, Delimiter) {
		return fmt.Errorf("%w: symbol %q", ErrDelimiterInUse, d.Symbol)
	}
	return nil
}

// Serialize returns the delimited form used for hashing:
// name|symbol|description.
func (d Description) Serialize() string {
	return d.Name + Delimiter + d.Symbol + Delimiter + d.Description
}

// ParseDescription inverts Serialize. It splits at the first two
// delimiters only, so a description containing the delimiter survives
// the round trip.
func ParseDescription(serialized string) (Description, error) {
	parts := strings.SplitN(serialized, Delimiter, 3)
	if len(parts) != 3 {
		return Description{}, fmt.Errorf("serialized description must have 3 fields, got %d", len(parts))
	}
	return Description{
		Name:        parts[0],
		Symbol:      parts[1],
		Description: parts[2],
	}, nil
}
