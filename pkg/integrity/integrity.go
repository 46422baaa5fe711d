// Package integrity computes and checks file digests.
//
// Compute records a SHA-256 fingerprint for display or storage. Verify checks
// a file against the SHA-1 published in version and asset manifests.
package integrity

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"launcher/pkg/common"
)

// Algorithm names a supported hash family.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

func (a Algorithm) new() (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", string(a))
	}
}

// MismatchError describes a failed comparison. It is always wrapped in a
// common.Error of kind IntegrityMismatch.
type MismatchError struct {
	Algorithm Algorithm
	Expected  string
	Actual    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Algorithm, e.Expected, e.Actual)
}

// Compute returns the lowercase hex SHA-256 of the file at path.
func Compute(path string) (string, error) {
	return ComputeWith(path, SHA256)
}

// ComputeWith returns the lowercase hex digest of the file at path.
func ComputeWith(path string, algo Algorithm) (string, error) {
	h, err := algo.new()
	if err != nil {
		return "", common.NewError(common.UnsupportedFormat, "digest", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", common.FromIO("digest", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", common.NewError(common.IoError, "digest", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks the file's SHA-1 against expected, ignoring case.
func Verify(path, expected string) error {
	return VerifyWith(path, SHA1, expected)
}

// VerifyWith checks the file's digest against expected, ignoring case.
func VerifyWith(path string, algo Algorithm, expected string) error {
	actual, err := ComputeWith(path, algo)
	if err != nil {
		return err
	}
	want := strings.ToLower(strings.TrimSpace(expected))
	if actual != want {
		return common.NewError(common.IntegrityMismatch, "verify", path, &MismatchError{
			Algorithm: algo,
			Expected:  want,
			Actual:    actual,
		})
	}
	return nil
}
