package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// This package turns a timestamped CSV into supervised examples for a
// sequence regressor:
//
//	CSV -> Series -> TimeSplit -> MinMaxScaler -> BuildWindows -> WindowDataset -> Loader
//
// Each WindowDataset holds the windows of exactly one split, so no window
// ever crosses a split boundary.
//
// Layout of one example:
//   - Inputs: window_size * channels float32 values, time-major
//     (t0c0, t0c1, ..., t1c0, ...). With one channel this is just the window.
//   - Labels: a single float32, the value step_ahead steps after the window.
//
// Batches come back as [][]float32 and can be packed into gomlx tensors of
// shape [batch, window_size, channels] and [batch, 1] with
// MakeWindowBatchFlat + ToGomlxTensors.

// Dataset is implemented by WindowDataset. The Yield/Restart pair follows
// gomlx's train.Dataset iteration protocol.
type Dataset interface {
	Len() int
	Example(i int) (inputs []float32, labels []float32, err error)
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
	Shuffle(seed int64)

	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Restart() error
}

// BatchSource is the subset of Dataset a Loader needs.
type BatchSource interface {
	Len() int
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
}
