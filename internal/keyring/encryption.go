package keyring

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// At-rest encryption for the key record: Argon2id + XChaCha20-Poly1305.
// Format: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
const (
	saltSize   = 32
	headerSize = saltSize + 4 + 4 + 1
)

// Argon2id parameters baked into new records. Stored in the header so
// they can be raised later without breaking old records.
const (
	argonMemoryKB    = uint32(64 * 1024)
	argonIterations  = uint32(3)
	argonParallelism = uint8(4)
)

// deriveEncryptionKey stretches a passphrase into a 32-byte cipher key.
func deriveEncryptionKey(passphrase, salt []byte, memory, iterations uint32, parallelism uint8) []byte {
	return argon2.IDKey(passphrase, salt, iterations, memory, parallelism, chacha20poly1305.KeySize)
}

// Encrypt seals data under a passphrase.
func Encrypt(data, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := deriveEncryptionKey(passphrase, salt, argonMemoryKB, argonIterations, argonParallelism)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, data, nil)

	out := make([]byte, 0, headerSize+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = binary.LittleEndian.AppendUint32(out, argonMemoryKB)
	out = binary.LittleEndian.AppendUint32(out, argonIterations)
	out = append(out, argonParallelism)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt opens data sealed by Encrypt with the given passphrase.
func Decrypt(encrypted, passphrase []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("encrypted record too short: %d bytes, need at least %d", len(encrypted), minSize)
	}

	salt := encrypted[:saltSize]
	memory := binary.LittleEndian.Uint32(encrypted[saltSize:])
	iterations := binary.LittleEndian.Uint32(encrypted[saltSize+4:])
	parallelism := encrypted[saltSize+8]

	nonce := encrypted[headerSize : headerSize+nonceSize]
	ciphertext := encrypted[headerSize+nonceSize:]

	key := deriveEncryptionKey(passphrase, salt, memory, iterations, parallelism)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
