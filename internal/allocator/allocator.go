// Package allocator provides the allocation strategy plugged into every
// region and buffer in the engine. Two allocation kinds are
// distinguished: struct allocations, which must come back zeroed and be
// wiped before release, and region allocations, which are raw bytes
// backing a Region's extent.
package allocator

import (
	"github.com/pagebuf/go-pagebuf/internal/logging"
	"github.com/pagebuf/go-pagebuf/internal/pberr"
)

// Kind distinguishes the two allocation disciplines an Allocator must
// support.
type Kind int

const (
	// KindStruct allocations back fixed-layout metadata and must be
	// zero-initialised on Alloc. Page, Buffer and Region headers in this
	// module are ordinary Go values and are not obtained through Alloc.
	KindStruct Kind = iota

	// KindRegion allocations back the raw byte extent a Region wraps.
	// They carry no zeroing contract.
	KindRegion
)

func (k Kind) String() string {
	if k == KindStruct {
		return "struct"
	}

	return "region"
}

// Allocator is the plug-in trait every region and buffer obtains memory
// through. Implementations must be safe to use from a single actor only
// (see spec §5); no internal locking is required or expected.
type Allocator interface {
	// Alloc returns size bytes for the given kind, or an error wrapping
	// pberr.ErrOutOfMemory / pberr.ErrAllocFailed / pberr.ErrUnsupportedKind.
	// KindStruct allocations are always returned zeroed.
	Alloc(kind Kind, size int) ([]byte, error)

	// Free releases a slice previously returned by Alloc. Free never
	// fails (spec §4.2); buf may be nil, in which case Free is a no-op.
	Free(kind Kind, buf []byte)
}

// Config bundles the tunables of the trivial allocator, built with the
// functional-options pattern.
type Config struct {
	MemoryLimit    uintptr
	EnableTracking bool
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithMemoryLimit caps the bytes the trivial allocator has outstanding
// (allocated and not yet freed) across both kinds combined. Zero (the
// default) means unlimited. The cap is enforced only while tracking is
// enabled; with WithTracking(false) it is ignored.
func WithMemoryLimit(limit uintptr) Option {
	return func(c *Config) { c.MemoryLimit = limit }
}

// WithTracking enables/disables bookkeeping of total allocated/freed
// bytes used by Stats. Enabled by default.
func WithTracking(enabled bool) Option {
	return func(c *Config) { c.EnableTracking = enabled }
}

func defaultConfig() *Config {
	return &Config{EnableTracking: true}
}

// Stats reports coarse bookkeeping about a TrivialAllocator's lifetime
// usage. It is not required by the spec but mirrors the observability
// the teacher's allocator layer exposes.
type Stats struct {
	TotalAllocated uintptr
	TotalFreed     uintptr
	AllocCount     uint64
	FreeCount      uint64
}

// TrivialAllocator delegates both allocation kinds straight to the host
// heap via make([]byte, size); it is the default backend for ordinary
// (non-mmap) buffers.
type TrivialAllocator struct {
	config *Config
	stats  Stats
}

// New creates a TrivialAllocator. This is the host-heap implementation
// referenced by spec §4.1 and exposed publicly as the default backend.
func New(opts ...Option) *TrivialAllocator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &TrivialAllocator{config: cfg}
}

func (a *TrivialAllocator) inUse() uintptr {
	return a.stats.TotalAllocated - a.stats.TotalFreed
}

// Alloc implements Allocator.
func (a *TrivialAllocator) Alloc(kind Kind, size int) ([]byte, error) {
	if size < 0 {
		return nil, pberr.ErrAllocFailed
	}

	if size == 0 {
		return []byte{}, nil
	}

	if a.config.MemoryLimit > 0 && a.config.EnableTracking {
		if a.inUse()+uintptr(size) > a.config.MemoryLimit {
			logging.Default.Warnf("allocator: %s alloc of %d bytes refused, %d/%d bytes in use", kind, size, a.inUse(), a.config.MemoryLimit)

			if kind == KindStruct {
				return nil, pberr.ErrOutOfMemory
			}

			return nil, pberr.ErrAllocFailed
		}
	}

	buf := make([]byte, size)

	if a.config.EnableTracking {
		a.stats.TotalAllocated += uintptr(size)
		a.stats.AllocCount++
	}

	return buf, nil
}

// Free implements Allocator. It is a no-op beyond bookkeeping: Go's
// garbage collector reclaims the backing array once the last reference
// drops, which is the moment this call returns for a correctly used
// allocator (callers must not retain buf past Free).
func (a *TrivialAllocator) Free(_ Kind, buf []byte) {
	if buf == nil {
		return
	}

	if a.config.EnableTracking {
		a.stats.TotalFreed += uintptr(len(buf))
		a.stats.FreeCount++
	}
}

// Stats returns a snapshot of lifetime allocation bookkeeping.
func (a *TrivialAllocator) Stats() Stats {
	return a.stats
}

// Default is the process-wide trivial allocator used when a buffer is
// constructed without an explicit Allocator. It owns no resources and
// needs no teardown, mirroring the teacher's GlobalAllocator singleton.
var Default Allocator = New()
