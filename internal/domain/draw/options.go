package draw

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithRandomSource sets the random source used for both draw stages.
func WithRandomSource(rng RandomSource) Option {
	return func(s *Selector) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSeed makes the selector deterministic, for simulations and tests.
func WithSeed(seed uint64) Option {
	return func(s *Selector) {
		s.rng = NewSeededSource(seed)
	}
}
