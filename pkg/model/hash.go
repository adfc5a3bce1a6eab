package model

import (
	"crypto/md5"  //nolint:gosec // MD5 is what the Files field of a Sources index carries
	"crypto/sha1" //nolint:gosec // SHA-1 is what Checksums-Sha1 carries
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/errors"
)

// HashAlgorithm names the digest a sources index records for its files.
type HashAlgorithm string

// Supported digests.
const (
	AlgorithmNone   HashAlgorithm = ""
	AlgorithmMD5    HashAlgorithm = "md5"
	AlgorithmSHA1   HashAlgorithm = "sha1"
	AlgorithmSHA256 HashAlgorithm = "sha256"
)

// ParseHashAlgorithm converts a config value into a HashAlgorithm.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch a := HashAlgorithm(strings.ToLower(strings.TrimSpace(s))); a {
	case AlgorithmNone, AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA256:
		return a, nil
	case "none":
		return AlgorithmNone, nil
	default:
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedDigest, s)
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a HashAlgorithm) New() (hash.Hash, error) {
	switch a {
	case AlgorithmMD5:
		return md5.New(), nil //nolint:gosec
	case AlgorithmSHA1:
		return sha1.New(), nil //nolint:gosec
	case AlgorithmSHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedDigest, string(a))
	}
}

// Size returns the digest length in bytes.
func (a HashAlgorithm) Size() (int, error) {
	switch a {
	case AlgorithmMD5:
		return md5.Size, nil
	case AlgorithmSHA1:
		return sha1.Size, nil
	case AlgorithmSHA256:
		return sha256.Size, nil
	default:
		return 0, fmt.Errorf("%w: %q", errors.ErrUnsupportedDigest, string(a))
	}
}

// String returns the algorithm name, "none" for AlgorithmNone.
func (a HashAlgorithm) String() string {
	if a == AlgorithmNone {
		return "none"
	}
	return string(a)
}
