// Package id generates sortable identifiers for lifecycle events.
//
// IDs are prefixed ULIDs ("evt_01J..."). Within one generator they are
// strictly increasing, so comparing two IDs as strings orders the events
// they name. That lets a reconnecting websocket client ask for everything
// after the last id it saw.
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

// EventID identifies a plugin lifecycle event
type EventID string

// EventPrefix marks event ids in logs and payloads
const EventPrefix = "evt"

// String returns the id as a string
func (id EventID) String() string { return string(id) }

// Generator produces monotonic ULIDs
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader, time.Now)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
// and clock, for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     now,
	}
}

// Generate creates a new ULID greater than every previous one from g
// within the same millisecond
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewEvent generates an event id from g
func (g *Generator) NewEvent() EventID {
	return EventID(g.GenerateWithPrefix(EventPrefix))
}

// NewEventID generates an event id from the default generator
func NewEventID() EventID {
	return Default().NewEvent()
}

// Parse extracts the ULID from a prefixed or bare id
func Parse(s string) (ulid.ULID, error) {
	if _, rest, ok := strings.Cut(s, "_"); ok {
		s = rest
	}
	return ulid.Parse(s)
}

// IsValid reports whether s is a prefixed or bare ULID
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Timestamp returns the creation time encoded in an id
func Timestamp(s string) (time.Time, error) {
	parsed, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

// After reports whether a was generated after b. Invalid ids sort first.
func After(a, b string) bool {
	pa, errA := Parse(a)
	pb, errB := Parse(b)
	switch {
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return pa.Compare(pb) > 0
}
