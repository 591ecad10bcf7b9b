package draw

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource yields uniform values in [0,1). Implementations used
// concurrently must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

// cryptoSource draws 53 random bits from crypto/rand per value. Stateless,
// safe for concurrent use.
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to the runtime-seeded generator.
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // keep 53 bits
	return float64(u) / (1 << 53)
}

// DefaultSource returns the crypto-backed random source.
func DefaultSource() RandomSource { return cryptoSource{} }

// seededSource is a deterministic PCG source for reproducible draws in tests
// and simulations. Not safe for concurrent use.
type seededSource struct {
	r *rand.Rand
}

// NewSeededSource returns a deterministic source derived from seed.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 { return s.r.Float64() }

// fixedSource replays a fixed sequence of values, then repeats the last one.
// Used to pin draws onto exact cut points.
type fixedSource struct {
	values []float64
	next   int
}

// NewFixedSource returns a source that replays values in order.
func NewFixedSource(values ...float64) RandomSource {
	return &fixedSource{values: values}
}

func (f *fixedSource) Float64() float64 {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next]
	if f.next < len(f.values)-1 {
		f.next++
	}
	return v
}
