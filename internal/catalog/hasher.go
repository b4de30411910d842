package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"
)

// ContentID returns the lowercase hex SHA-256 of everything read from r.
// The result depends only on the bytes, never on names or timestamps.
func ContentID(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashingReader hashes every byte read through it, so the content id and
// the extracted metadata come from the same read of the file. Read errors
// of the source are kept apart from whatever the consumer returns.
type hashingReader struct {
	mu  sync.Mutex
	r   io.Reader
	h   hash.Hash
	err error
}

func newHashingReader(r io.Reader) *hashingReader {
	return &hashingReader{r: r, h: sha256.New()}
}

func (hr *hashingReader) Read(p []byte) (int, error) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	if hr.err != nil {
		return 0, hr.err
	}
	n, err := hr.r.Read(p)
	hr.h.Write(p[:n])
	if err != nil && err != io.EOF {
		hr.err = err
	}
	return n, err
}

// Sum reads whatever the consumer left unread and returns the content id.
func (hr *hashingReader) Sum() (string, error) {
	if _, err := io.Copy(io.Discard, hr); err != nil {
		return "", fmt.Errorf("hashing content: %w", err)
	}
	hr.mu.Lock()
	defer hr.mu.Unlock()
	if hr.err != nil {
		return "", fmt.Errorf("hashing content: %w", hr.err)
	}
	return hex.EncodeToString(hr.h.Sum(nil)), nil
}
