// Package digest computes and reads artifact digests.
//
// Digests are always rendered as lowercase hex. Algorithm names are matched
// case-insensitively; "SHA1" and "SHA-1" are the same algorithm.
package digest

import (
	"bufio"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/depfetch/pkg/errors"
)

var algorithms = map[string]func() hash.Hash{
	"MD5":     md5.New,
	"SHA1":    sha1.New,
	"SHA-1":   sha1.New,
	"SHA256":  sha256.New,
	"SHA-256": sha256.New,
	"SHA512":  sha512.New,
	"SHA-512": sha512.New,
}

// New returns a fresh hash for the named algorithm.
func New(algorithm string) (hash.Hash, error) {
	ctor, ok := algorithms[strings.ToUpper(strings.TrimSpace(algorithm))]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported hash algorithm %q", algorithm)
	}
	return ctor(), nil
}

// Supported reports whether algorithm is known.
func Supported(algorithm string) bool {
	_, err := New(algorithm)
	return err == nil
}

// Hex renders the sum of h as lowercase hex.
func Hex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Reader computes the digest of everything read from r.
func Reader(r io.Reader, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Hex(h), nil
}

// File computes the digest of the file at path.
func File(path, algorithm string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Reader(bufio.NewReader(f), algorithm)
}

// ReadSidecar reads an expected digest from a hash file. Repositories often
// append the file name after the digest, so only the first whitespace
// separated token is returned.
func ReadSidecar(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ParseSidecar(string(data))
}

// ParseSidecar extracts the digest token from hash file contents.
func ParseSidecar(contents string) (string, error) {
	fields := strings.Fields(contents)
	if len(fields) == 0 {
		return "", errors.New(errors.ErrCodeIntegrity, "hash file is empty")
	}
	return fields[0], nil
}

// Verify compares the digest of the file at path with expected and returns
// an [errors.IntegrityError] on mismatch.
func Verify(path, algorithm, expected string) error {
	actual, err := File(path, algorithm)
	if err != nil {
		return err
	}
	if actual != expected {
		return &errors.IntegrityError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}

// Writer tees writes into a hash while passing them to w.
type Writer struct {
	w io.Writer
	h hash.Hash
}

// NewWriter returns a Writer computing algorithm over everything written to w.
func NewWriter(w io.Writer, algorithm string) (*Writer, error) {
	h, err := New(algorithm)
	if err != nil {
		return nil, err
	}
	return &Writer{w: io.MultiWriter(w, h), h: h}, nil
}

func (d *Writer) Write(p []byte) (int, error) { return d.w.Write(p) }

// Sum returns the lowercase hex digest of the bytes written so far.
func (d *Writer) Sum() string { return Hex(d.h) }
