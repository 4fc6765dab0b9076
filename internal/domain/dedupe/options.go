package dedupe

// Option applies a configuration option to the WorstKeeper.
type Option func(*WorstKeeper)

// WithCapacity preallocates room for n distinct keys.
func WithCapacity(n int) Option {
	return func(k *WorstKeeper) {
		if n > 0 {
			k.index = make(map[Key]int, n)
			k.slots = make([]slot, 0, n)
		}
	}
}
