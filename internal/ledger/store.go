package ledger

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mr-tron/base58"
	klog "github.com/shielded-labs/issuerd/internal/log"
	"github.com/shielded-labs/issuerd/internal/storage"
	"github.com/shielded-labs/issuerd/pkg/types"
)

// Key layout:
//
//	tok/<internal id>      -> Token JSON
//	aid/<asset id hex>     -> internal id
//	meta/seq               -> uint64 BE insertion counter
var (
	prefixToken   = []byte("tok/")
	prefixAssetID = []byte("aid/")
	keySeq        = []byte("meta/seq")
)

// Store persists token records. Every token is reachable by exactly one
// asset id and one internal id; the aid/ index enforces the mapping.
type Store struct {
	db storage.DB
}

// NewStore creates a token store over the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// NewID returns a fresh opaque internal id: base58 of 16 random bytes.
func NewID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return base58.Encode(b[:]), nil
}

// NextSeq increments and returns the insertion-order counter.
func (s *Store) NextSeq() (uint64, error) {
	var seq uint64
	if data, err := s.db.Get(keySeq); err == nil && len(data) == 8 {
		seq = binary.BigEndian.Uint64(data)
	}
	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := s.db.Put(keySeq, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: advance sequence: %v", ErrStorage, err)
	}
	return seq, nil
}

// Put persists a token record and its asset-id index entry. A failed
// write is retried once before surfacing as a storage error.
func (s *Store) Put(t *Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%w: marshal token: %v", ErrStorage, err)
	}
	if err := s.putRetry(tokenKey(t.ID), data); err != nil {
		return err
	}
	return s.putRetry(assetIDKey(t.AssetID), []byte(t.ID))
}

// putRetry writes a key, retrying once on failure.
func (s *Store) putRetry(key, value []byte) error {
	if err := s.db.Put(key, value); err != nil {
		klog.Storage.Warn().Err(err).Str("key", string(key)).Msg("token write failed, retrying")
		if err := s.db.Put(key, value); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return nil
}

// GetByID retrieves a token by internal id.
func (s *Store) GetByID(id string) (*Token, error) {
	data, err := s.db.Get(tokenKey(id))
	if err != nil {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: unmarshal token %s: %v", ErrStorage, id, err)
	}
	return &t, nil
}

// GetByAssetID retrieves a token by asset id.
func (s *Store) GetByAssetID(id types.AssetID) (*Token, error) {
	internal, err := s.db.Get(assetIDKey(id))
	if err != nil {
		return nil, fmt.Errorf("%w: asset id %s", ErrNotFound, id)
	}
	return s.GetByID(string(internal))
}

// HasAssetID checks whether an asset id is already registered.
func (s *Store) HasAssetID(id types.AssetID) (bool, error) {
	return s.db.Has(assetIDKey(id))
}

// List returns all token records in insertion order. Corrupt entries
// are skipped and an absent store yields an empty slice.
func (s *Store) List() []*Token {
	var tokens []*Token
	err := s.db.ForEach(prefixToken, func(_, value []byte) error {
		var t Token
		if err := json.Unmarshal(value, &t); err != nil {
			return nil // Skip corrupt entries.
		}
		tokens = append(tokens, &t)
		return nil
	})
	if err != nil {
		klog.Storage.Warn().Err(err).Msg("token listing failed, returning empty collection")
		return []*Token{}
	}
	if tokens == nil {
		return []*Token{}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Seq < tokens[j].Seq })
	return tokens
}

// ListByIssuer returns the tokens minted by an issuer, in insertion order.
func (s *Store) ListByIssuer(issuer string) []*Token {
	all := s.List()
	matched := []*Token{}
	for _, t := range all {
		if t.Issuer == issuer {
			matched = append(matched, t)
		}
	}
	return matched
}

func tokenKey(id string) []byte {
	return append(append([]byte{}, prefixToken...), id...)
}

func assetIDKey(id types.AssetID) []byte {
	return append(append([]byte{}, prefixAssetID...), id.String()...)
}
