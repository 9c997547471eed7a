package demo

import "fmt"

// Config holds the values the scenarios print and the knobs of the run.
type Config struct {
	Unique   int // value adopted from a raw allocation
	Factory  int // value built by Make
	Shared   int // value shared between owners
	Transfer int // value handed to acceptParameter by transfer
	Offset   int // added by acceptParameter

	Copies  int // clones made of the shared owner
	Workers int // goroutines in the shared-workers step

	// HeapLimit caps live ledger records; 0 means unlimited.
	HeapLimit int
	// CheckLeaks fails the run when anything is still owned at the end.
	CheckLeaks bool
}

// DefaultConfig returns the values of the classic walk-through.
func DefaultConfig() Config {
	return Config{
		Unique:     235,
		Factory:    711,
		Shared:     1317,
		Transfer:   1719,
		Offset:     10,
		Copies:     2,
		Workers:    8,
		CheckLeaks: true,
	}
}

// Validate rejects values no scenario can run with.
func (c Config) Validate() error {
	if c.Copies < 0 {
		return fmt.Errorf("copies must be >= 0, got %d", c.Copies)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.HeapLimit < 0 {
		return fmt.Errorf("heap limit must be >= 0, got %d", c.HeapLimit)
	}
	return nil
}
