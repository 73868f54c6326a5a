package keyring

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	klog "github.com/shielded-labs/issuerd/internal/log"
	"github.com/shielded-labs/issuerd/pkg/crypto"
	"github.com/shielded-labs/issuerd/pkg/types"
)

// Keyring errors.
var (
	// ErrInvalidSeed marks seed material that is malformed or out of range.
	ErrInvalidSeed = errors.New("invalid seed")

	// ErrBadPassphrase marks a passphrase that fails to decrypt the key record.
	ErrBadPassphrase = errors.New("bad passphrase")
)

// encryptedMagic prefixes key record files written with a passphrase.
var encryptedMagic = []byte("ISSKEY1\x00")

const recordVersion = 1

// Keyring holds the full derived issuer identity.
type Keyring struct {
	Seed      []byte
	Master    KeyMaterial
	Issuance  KeyMaterial
	IK        types.Hash // validating key
	Issuer    string     // 64 lowercase hex chars of IK
	CreatedAt time.Time
}

// recordFile is the on-disk JSON format for the persisted key record.
// All byte fields are hex-encoded.
type recordFile struct {
	Version   int       `json:"version"`
	Seed      hexBytes  `json:"seed"`
	MasterKey hexBytes  `json:"master_key"`
	ChainCode hexBytes  `json:"chain_code"`
	ISK       hexBytes  `json:"isk"`
	IK        hexBytes  `json:"ik"`
	Issuer    string    `json:"issuer"`
	CreatedAt time.Time `json:"created_at"`
}

// hexBytes is a byte slice stored as a hex string in JSON.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex field: %w", err)
	}
	*h = b
	return nil
}

// FromSeed derives the complete identity chain from a seed.
// Account 0 is the only account the issuer uses.
func FromSeed(seed []byte) (*Keyring, error) {
	master, err := DeriveMaster(seed)
	if err != nil {
		return nil, err
	}
	issuance := DeriveIssuanceKey(master, 0)
	ik := DeriveValidatingKey(issuance.Key)

	return &Keyring{
		Seed:      seed,
		Master:    master,
		Issuance:  issuance,
		IK:        ik,
		Issuer:    EncodeIssuer(ik),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LoadOrCreate loads the persisted key record at path, or generates and
// persists a new identity if none exists. Creation uses an exclusive
// create so two processes racing on first launch cannot each persist a
// different identity: the loser of the race loads the winner's record.
// A non-empty passphrase encrypts the record at rest.
func LoadOrCreate(path string, passphrase []byte) (*Keyring, error) {
	if kr, err := Load(path, passphrase); err == nil {
		return kr, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	seed, err := GenerateSeed(DefaultSeedSize)
	if err != nil {
		return nil, err
	}
	kr, err := FromSeed(seed)
	if err != nil {
		return nil, err
	}

	if err := kr.create(path, passphrase); err != nil {
		if os.IsExist(err) {
			// Another process persisted first; its identity wins.
			return Load(path, passphrase)
		}
		return nil, err
	}

	klog.Keyring.Info().Str("issuer", kr.Issuer).Str("path", path).Msg("issuer identity created")
	return kr, nil
}

// CreateFromSeed derives an identity from the given seed and persists
// it at path. Fails if a key record already exists there.
func CreateFromSeed(path string, seed, passphrase []byte) (*Keyring, error) {
	kr, err := FromSeed(seed)
	if err != nil {
		return nil, err
	}
	if err := kr.create(path, passphrase); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("key record already exists at %s", path)
		}
		return nil, err
	}
	klog.Keyring.Info().Str("issuer", kr.Issuer).Str("path", path).Msg("issuer identity created")
	return kr, nil
}

// Load reads and verifies the persisted key record.
func Load(path string, passphrase []byte) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key record: %w", err)
	}

	if bytes.HasPrefix(data, encryptedMagic) {
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: key record is encrypted and no passphrase given", ErrBadPassphrase)
		}
		data, err = Decrypt(data[len(encryptedMagic):], passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPassphrase, err)
		}
	}

	var rec recordFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse key record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("unsupported key record version: %d", rec.Version)
	}
	// A truncated field would otherwise zero-pad into the fixed-size
	// key arrays and yield a silently different identity.
	for name, field := range map[string]hexBytes{
		"master_key": rec.MasterKey,
		"chain_code": rec.ChainCode,
		"isk":        rec.ISK,
		"ik":         rec.IK,
	} {
		if len(field) != types.HashSize {
			return nil, fmt.Errorf("malformed key record: %s must be %d bytes, got %d", name, types.HashSize, len(field))
		}
	}

	kr := &Keyring{
		Seed:      rec.Seed,
		Issuer:    rec.Issuer,
		CreatedAt: rec.CreatedAt,
	}
	copy(kr.Master.Key[:], rec.MasterKey)
	copy(kr.Master.ChainCode[:], rec.ChainCode)
	copy(kr.Issuance.Key[:], rec.ISK)
	copy(kr.IK[:], rec.IK)
	return kr, nil
}

// create persists the key record with an exclusive create. Returns an
// os.IsExist error when a record is already present.
func (kr *Keyring) create(path string, passphrase []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create keyring dir: %w", err)
	}

	rec := recordFile{
		Version:   recordVersion,
		Seed:      kr.Seed,
		MasterKey: kr.Master.Key.Bytes(),
		ChainCode: kr.Master.ChainCode.Bytes(),
		ISK:       kr.Issuance.Key.Bytes(),
		IK:        kr.IK.Bytes(),
		Issuer:    kr.Issuer,
		CreatedAt: kr.CreatedAt,
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key record: %w", err)
	}

	if len(passphrase) > 0 {
		encrypted, err := Encrypt(data, passphrase)
		if err != nil {
			return fmt.Errorf("encrypt key record: %w", err)
		}
		data = append(append([]byte{}, encryptedMagic...), encrypted...)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write key record: %w", err)
	}
	return f.Close()
}

// Signer returns a Schnorr signer backed by the issuance authorizing key.
// Deployment requests are signed with it so the external transaction
// tool can verify they came from this issuer.
func (kr *Keyring) Signer() (*crypto.PrivateKey, error) {
	return crypto.PrivateKeyFromBytes(kr.Issuance.Key.Bytes())
}
