package stdlib

// PRNG is the Mulberry-like two-state generator spec's random group is
// built on (§4.7, §9 "a specific 32-bit MurmurHash-derived generator
// with a 64-bit state (seed, i)"). No retrieved source survived to
// cross-check bit-for-bit, so the exact mixing step is this exercise's
// own reconstruction: each draw folds the running counter into the seed
// through MurmurHash3's 64-bit finalizer, which is already in-module
// (hash.go) and gives a well-distributed, fully reproducible sequence
// from (seed, i) alone, matching the state shape §9 describes even
// though the precise constants are not pinned by spec.md.
type PRNG struct {
	seed uint32
	i    uint32
}

// NewPRNG creates a generator seeded from seed, counter 0.
func NewPRNG(seed uint32) *PRNG {
	return &PRNG{seed: seed}
}

// Seed resets the generator to a fixed seed, counter 0.
func (p *PRNG) Seed(seed uint32) {
	p.seed = seed
	p.i = 0
}

// SeedAuto reseeds from an externally supplied source of entropy
// (the host provides the raw bits; the language-level `rand.seedauto`
// just wants "some seed I didn't pick"), counter reset to 0.
func (p *PRNG) SeedAuto(entropy uint32) {
	p.Seed(entropy)
}

// GetState returns the raw (seed, i) pair for `rand.getstate`.
func (p *PRNG) GetState() (seed, i uint32) {
	return p.seed, p.i
}

// SetState restores a previously captured (seed, i) pair for
// `rand.setstate`, the mechanism scripts use to make a random sequence
// reproducible.
func (p *PRNG) SetState(seed, i uint32) {
	p.seed = seed
	p.i = i
}

// next draws the generator's next 32-bit word and advances the counter.
func (p *PRNG) next() uint32 {
	state := uint64(p.seed) | uint64(p.i)<<32
	p.i++
	h := fmix64(state)
	return uint32(h ^ (h >> 32))
}

// Int returns a uniformly distributed integer in [0, n) for n > 0, and
// a raw 32-bit draw (as a float64, matching the language's single
// number type) for n <= 0.
func (p *PRNG) Int(n int64) float64 {
	if n <= 0 {
		return float64(p.next())
	}
	return float64(uint64(p.next()) % uint64(n))
}

// Num returns a uniform float64 in [0, 1).
func (p *PRNG) Num() float64 {
	return float64(p.next()) / float64(1<<32)
}

// Range returns a uniform float64 in [lo, hi).
func (p *PRNG) Range(lo, hi float64) float64 {
	return lo + p.Num()*(hi-lo)
}

// PickIndex returns a uniform index in [0, n) for use by `rand.pick`.
func (p *PRNG) PickIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return int(uint64(p.next()) % uint64(n))
}

// Shuffle permutes n elements through swap using a Fisher-Yates shuffle driven by
// the generator, for `rand.shuffle`.
func (p *PRNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := p.PickIndex(i + 1)
		swap(i, j)
	}
}
