package orders

import (
	"fmt"
	"sync"
	"time"
)

const idStampLayout = "20060102150405"

// IDGenerator hands out ORDyyyymmddHHMMSS-NNN ids. The sequence restarts at
// 001 every second and never runs backwards, even if the clock does.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last   string
	lastAt time.Time
	seq    int
}

// NewIDGenerator cria um gerador usando o relógio em loc
func NewIDGenerator(loc *time.Location) *IDGenerator {
	return NewIDGeneratorWithClock(func() time.Time { return time.Now().In(loc) })
}

// NewIDGeneratorWithClock is NewIDGenerator with an injectable clock.
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// Next returns a fresh id and the instant it was minted for. The instant
// never precedes the timestamp encoded in the id.
func (g *IDGenerator) Next() (string, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	at := g.now()
	stamp := at.Format(idStampLayout)
	if stamp > g.last {
		g.last = stamp
		g.lastAt = at
		g.seq = 1
	} else {
		g.seq++
		// keep the order's date consistent with the stamp in its id
		if at.Before(g.lastAt) {
			at = g.lastAt
		}
	}
	return fmt.Sprintf("ORD%s-%03d", g.last, g.seq), at
}
