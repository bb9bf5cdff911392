package postgres

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator implements usecase.IDGenerator. Operation and event IDs
// are ULIDs with monotonic entropy: IDs minted within the same millisecond
// still sort in mint order, so the journal's id tiebreak follows creation
// order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ULIDGenerator{
		entropy: ulid.Monotonic(seed, 0),
	}
}

// Generate mints the next ULID. The entropy reader is not concurrency-safe,
// so minting is serialized.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
