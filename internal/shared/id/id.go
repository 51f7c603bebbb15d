// Package id provides centralized name generation for transient filesystem objects.
//
// Names are built from ULIDs, which gives them:
//   - Lexicographic sortability: a workspace name sorts by creation time
//   - Uniqueness under concurrency: jobs started in the same millisecond differ
//   - Debuggability: the timestamp is readable straight from a directory listing
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs from a shared entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator with cryptographically secure entropy
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source and clock.
// Useful for testing with deterministic names.
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		entropy: entropy,
		now:     now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// ============================================================================
// Filesystem Names
// ============================================================================

// WorkspaceName returns a directory name of the form
// <prefix><unix millis>-<random>, for example ".temp-extract-1700000000000-3zq8...".
func (g *Generator) WorkspaceName(prefix string) string {
	u := g.Generate()
	return fmt.Sprintf("%s%d-%s", prefix, u.Time(), randomPart(u))
}

// TempFileName returns a hidden sibling name for staging writes to base.
func (g *Generator) TempFileName(base string) string {
	return fmt.Sprintf(".%s.tmp-%s", base, randomPart(g.Generate()))
}

// randomPart returns the lowercase entropy section of a ULID (the last 16 characters).
func randomPart(u ulid.ULID) string {
	return strings.ToLower(u.String()[10:])
}

// ============================================================================
// Validation
// ============================================================================

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
