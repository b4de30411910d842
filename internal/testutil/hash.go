package testutil

import (
	"crypto/sha256"
	"fmt"
)

// ContentID returns the content id the indexer assigns to a file holding
// content, computed independently of catalog.ContentID.
func ContentID(content string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}
