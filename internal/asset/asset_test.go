package asset

import (
	"errors"
	"strings"
	"testing"

	"github.com/shielded-labs/issuerd/pkg/types"
)

const testIssuer = "a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8a1b2c3d4e5f6a7b8"

func TestDescriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Description
		wantErr error
	}{
		{"valid", Description{Name: "Gold Token", Symbol: "GOLD", Description: "backed by gold"}, nil},
		{"minimal symbol", Description{Name: "x", Symbol: "XY"}, nil},
		{"empty name", Description{Symbol: "GOLD"}, ErrEmptyName},
		{"symbol too short", Description{Name: "Gold", Symbol: "G"}, ErrBadSymbol},
		{"symbol too long", Description{Name: "Gold", Symbol: "GOLDGOLDGOL"}, ErrBadSymbol},
		{"delimiter in name", Description{Name: "Gold|Token", Symbol: "GOLD"}, ErrDelimiterInUse},
		{"delimiter in symbol", Description{Name: "Gold", Symbol: "GO|LD"}, ErrDelimiterInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	// The description field may contain the delimiter; it must survive.
	d := Description{
		Name:        "Gold Token",
		Symbol:      "GOLD",
		Description: "grade A|B bullion",
	}

	back, err := ParseDescription(d.Serialize())
	if err != nil {
		t.Fatalf("ParseDescription: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %+v, want %+v", back, d)
	}
}

func TestParseDescriptionRejectsShort(t *testing.T) {
	if _, err := ParseDescription("only|two"); err == nil {
		t.Error("expected error on serialized form with 2 fields")
	}
}

func TestComputeAssetIDDeterministic(t *testing.T) {
	d := Description{Name: "Gold Token", Symbol: "GOLD", Description: "test"}

	id1, dh1, err := ComputeAssetID(testIssuer, d.Serialize())
	if err != nil {
		t.Fatalf("ComputeAssetID: %v", err)
	}
	id2, dh2, err := ComputeAssetID(testIssuer, d.Serialize())
	if err != nil {
		t.Fatalf("ComputeAssetID: %v", err)
	}

	if id1 != id2 || dh1 != dh2 {
		t.Error("identical inputs produced different identifiers")
	}

	s := id1.String()
	if len(s) != types.AssetIDHexLen {
		t.Errorf("asset id length = %d, want %d", len(s), types.AssetIDHexLen)
	}
	if !strings.HasPrefix(s, "00") {
		t.Errorf("asset id %s missing version tag prefix", s[:4])
	}
	if s[2:66] != testIssuer {
		t.Error("asset id does not embed the issuer validating key")
	}
	if id1.DescHash() != DescHash(d.Serialize()) {
		t.Error("asset id does not embed the description hash")
	}
}

func TestComputeAssetIDBindsInputs(t *testing.T) {
	d := Description{Name: "Gold Token", Symbol: "GOLD"}
	id1, _, err := ComputeAssetID(testIssuer, d.Serialize())
	if err != nil {
		t.Fatalf("ComputeAssetID: %v", err)
	}

	// Different description, same issuer.
	d2 := Description{Name: "Silver Token", Symbol: "SLVR"}
	id2, _, err := ComputeAssetID(testIssuer, d2.Serialize())
	if err != nil {
		t.Fatalf("ComputeAssetID: %v", err)
	}
	if id1 == id2 {
		t.Error("different descriptions produced the same asset id")
	}

	// Same description, different issuer.
	otherIssuer := strings.Repeat("ff", 32)
	id3, _, err := ComputeAssetID(otherIssuer, d.Serialize())
	if err != nil {
		t.Fatalf("ComputeAssetID: %v", err)
	}
	if id1 == id3 {
		t.Error("different issuers produced the same asset id")
	}
}

func TestComputeAssetIDBadIssuer(t *testing.T) {
	tests := []string{"", "abcd", strings.Repeat("zz", 32)}
	for _, issuer := range tests {
		if _, _, err := ComputeAssetID(issuer, "a|bc|d"); err == nil {
			t.Errorf("expected error for issuer %q", issuer)
		}
	}
}
