package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Algorithm identifies a supported checksum algorithm
type Algorithm string

const (
	MD5     Algorithm = "md5"
	SHA1    Algorithm = "sha1"
	SHA256  Algorithm = "sha256"
	BLAKE2b Algorithm = "blake2b"
)

// ParseAlgorithm validates an algorithm name from the command line
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case MD5, SHA1, SHA256, BLAKE2b:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q (md5, sha1, sha256, blake2b)", s)
	}
}

// Hasher computes a streaming checksum over one file's bytes
type Hasher struct {
	algo Algorithm
	h    hash.Hash
}

// New creates a Hasher for the given algorithm
func New(algo Algorithm) (*Hasher, error) {
	var h hash.Hash
	switch algo {
	case MD5:
		h = md5.New()
	case SHA1:
		h = sha1.New()
	case SHA256:
		h = sha256.New()
	case BLAKE2b:
		var err error
		h, err = blake2b.New256(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blake2b: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
	return &Hasher{algo: algo, h: h}, nil
}

// Update feeds the next chunk of file content into the digest
func (h *Hasher) Update(p []byte) {
	// hash.Hash.Write never returns an error
	h.h.Write(p)
}

// Finalize returns the lowercase hex digest of everything written
func (h *Hasher) Finalize() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Algorithm returns the algorithm this hasher was created with
func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}
