package owner

// Option configures an owner at construction.
type Option func(*config)

type config struct {
	heap *Heap
	name string
}

// WithHeap records the owned value in h.
func WithHeap(h *Heap) Option {
	return func(c *config) { c.heap = h }
}

// Named labels the owner in errors, traces and ledger records.
func Named(name string) Option {
	return func(c *config) { c.name = name }
}

func buildConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

func label(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
