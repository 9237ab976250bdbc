package datasets

import (
	"fmt"
	"math/rand"
)

// Loader splits a dataset into batches of indices, one epoch at a time.
// Every call to Epoch returns a fresh sequence; with Shuffle enabled the
// order is a pure function of (seed, epoch), otherwise it is the natural
// order. The last batch of an epoch may be shorter than BatchSize.
type Loader struct {
	src       BatchSource
	batchSize int
	shuffle   bool
	seed      int64
}

// NewLoader creates a loader over src.
func NewLoader(src BatchSource, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if src == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}
	return &Loader{src: src, batchSize: batchSize, shuffle: shuffle, seed: seed}, nil
}

// Source returns the underlying dataset.
func (l *Loader) Source() BatchSource {
	return l.src
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// NumBatches returns the number of batches per epoch.
func (l *Loader) NumBatches() int {
	return (l.src.Len() + l.batchSize - 1) / l.batchSize
}

// Epoch returns the index batches for the given epoch.
func (l *Loader) Epoch(epoch int) [][]int {
	n := l.src.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if l.shuffle {
		r := rand.New(rand.NewSource(l.seed + int64(epoch)*1_000_003))
		r.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	batches := make([][]int, 0, l.NumBatches())
	for bstart := 0; bstart < n; bstart += l.batchSize {
		bend := min(bstart+l.batchSize, n)
		batches = append(batches, indices[bstart:bend:bend])
	}
	return batches
}
