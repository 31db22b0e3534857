package ids

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewID returns an opaque identifier of the form "{prefix}_{12 hex chars}".
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}

// NowMS returns wall-clock milliseconds since the Unix epoch.
func NowMS() int64 {
	return time.Now().UnixMilli()
}

// Clock supplies record timestamps.
type Clock interface {
	NowMS() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMS implements Clock.
func (SystemClock) NowMS() int64 { return NowMS() }

// StepClock is a deterministic clock for tests. Every call advances by Step.
type StepClock struct {
	mu   sync.Mutex
	now  int64
	Step int64
}

// NewStepClock creates a clock whose first reading is start.
func NewStepClock(start, step int64) *StepClock {
	return &StepClock{now: start - step, Step: step}
}

// NowMS implements Clock.
func (c *StepClock) NowMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.Step
	return c.now
}
