// Package particles holds the fluid and boundary particle sets consumed by
// the solvers, plus lattice generators used to fill volumes with them.
package particles

import (
	"fmt"
	"strings"

	"github.com/pthm-cable/fluid/simerr"
)

// FluidType selects the solver family and the buffers a FluidBody carries.
type FluidType int

const (
	PBD FluidType = iota
	CSPH
	WCSPH
)

var fluidTypeNames = [...]string{"PBD", "CSPH", "WCSPH"}

func (t FluidType) String() string {
	if t < 0 || int(t) >= len(fluidTypeNames) {
		return fmt.Sprintf("FluidType(%d)", int(t))
	}
	return fluidTypeNames[t]
}

// Valid reports whether t is one of the known fluid types.
func (t FluidType) Valid() bool {
	return t >= PBD && t <= WCSPH
}

// IsSPH reports whether t uses the force-based SPH buffers.
func (t FluidType) IsSPH() bool {
	return t == CSPH || t == WCSPH
}

// ParseFluidType parses a case-insensitive fluid type name.
func ParseFluidType(s string) (FluidType, error) {
	for i, name := range fluidTypeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return FluidType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fluid type %q: %w", s, simerr.ErrInvalidConfiguration)
}

// MarshalText implements encoding.TextMarshaler.
func (t FluidType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FluidType) UnmarshalText(b []byte) error {
	v, err := ParseFluidType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Role tags one half of a double-buffered array.
type Role int

const (
	Read Role = iota
	Write
)

func (r Role) String() string {
	if r == Read {
		return "READ"
	}
	return "WRITE"
}

// Buffers is a pair of equally sized arrays addressed by role. Passes read
// every element of Read and write their own element of Write, then Swap.
type Buffers[T any] struct {
	bufs [2][]T
	read int
}

// NewBuffers allocates both halves with a copy of init.
func NewBuffers[T any](init []T) Buffers[T] {
	var b Buffers[T]
	for i := range b.bufs {
		b.bufs[i] = make([]T, len(init))
		copy(b.bufs[i], init)
	}
	return b
}

// Get returns the array currently holding role r.
func (b *Buffers[T]) Get(r Role) []T {
	if r == Read {
		return b.bufs[b.read]
	}
	return b.bufs[1-b.read]
}

// Read returns the array tagged READ.
func (b *Buffers[T]) Read() []T { return b.bufs[b.read] }

// Write returns the array tagged WRITE.
func (b *Buffers[T]) Write() []T { return b.bufs[1-b.read] }

// Swap flips the roles.
func (b *Buffers[T]) Swap() { b.read = 1 - b.read }

// ReadIndex returns which physical array is tagged READ.
func (b *Buffers[T]) ReadIndex() int { return b.read }

// Len returns the element count of each half.
func (b *Buffers[T]) Len() int { return len(b.bufs[0]) }

func (b *Buffers[T]) release() {
	b.bufs = [2][]T{}
	b.read = 0
}
