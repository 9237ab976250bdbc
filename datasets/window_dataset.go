package datasets

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// WindowDataset is an in-memory dataset of sliding windows taken from a
// single split.
type WindowDataset struct {
	// Name of the split the windows were built from
	Name string

	// BatchSize for yielding batches
	BatchSize int

	WindowSize int
	Channels   int

	inputs [][]float32
	labels [][]float32

	// order is the iteration order used by Yield; natural unless shuffled.
	order  []int
	cursor int
}

// NewWindowDataset packs the output of BuildWindows into a dataset. Each
// row of X must hold windowSize*channels values, time-major.
func NewWindowDataset(name string, X [][]float64, y []float64, windowSize, channels int) (*WindowDataset, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("inputs and labels sizes don't match: %d != %d", len(X), len(y))
	}
	if windowSize < 1 || channels < 1 {
		return nil, fmt.Errorf("%w: window_size=%d channels=%d", ErrInvalidWindow, windowSize, channels)
	}

	ds := &WindowDataset{
		Name:       name,
		BatchSize:  32,
		WindowSize: windowSize,
		Channels:   channels,
		inputs:     make([][]float32, len(X)),
		labels:     make([][]float32, len(y)),
		order:      make([]int, len(X)),
	}
	for i, row := range X {
		if len(row) != windowSize*channels {
			return nil, fmt.Errorf("inconsistent window length at example %d: expected %d, got %d",
				i, windowSize*channels, len(row))
		}
		in := make([]float32, len(row))
		for j, v := range row {
			in[j] = float32(v)
		}
		ds.inputs[i] = in
		ds.labels[i] = []float32{float32(y[i])}
		ds.order[i] = i
	}
	return ds, nil
}

// Len returns the number of windows.
func (d *WindowDataset) Len() int {
	return len(d.inputs)
}

// Example returns copies of the window and label at idx.
func (d *WindowDataset) Example(idx int) ([]float32, []float32, error) {
	if idx < 0 || idx >= len(d.inputs) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.inputs))
	}
	in := make([]float32, len(d.inputs[idx]))
	copy(in, d.inputs[idx])
	return in, []float32{d.labels[idx][0]}, nil
}

// Batch reads multiple examples by their indices.
func (d *WindowDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))
	for pos, idx := range indices {
		in, la, err := d.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[pos] = in
		labels[pos] = la
	}
	return inputs, labels, nil
}

// Shuffle sets the Yield order to a permutation that depends only on seed
// and rewinds the cursor.
func (d *WindowDataset) Shuffle(seed int64) {
	for i := range d.order {
		d.order[i] = i
	}
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(d.order), func(i, j int) {
		d.order[i], d.order[j] = d.order[j], d.order[i]
	})
	d.cursor = 0
}

// Tensors reads a batch of examples and returns them as gomlx tensors
func (d *WindowDataset) Tensors(indices []int) (inputs *tensors.Tensor, labels *tensors.Tensor, err error) {
	inData, labData, err := d.Batch(indices)
	if err != nil {
		return nil, nil, err
	}

	wbatch, err := MakeWindowBatchFlat(inData, labData, d.WindowSize, d.Channels)
	if err != nil {
		return nil, nil, err
	}

	return wbatch.ToGomlxTensors()
}

// Yield returns the next batch of up to BatchSize windows as gomlx tensors,
// or io.EOF once the epoch is exhausted.
func (d *WindowDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if d.cursor >= len(d.order) {
		return nil, nil, nil, io.EOF
	}
	size := d.BatchSize
	if size <= 0 {
		size = 32
	}
	end := min(d.cursor+size, len(d.order))
	in, la, err := d.Tensors(d.order[d.cursor:end])
	if err != nil {
		return nil, nil, nil, err
	}
	d.cursor = end
	return d.Name, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// Restart resets the dataset for a new epoch
func (d *WindowDataset) Restart() error {
	d.cursor = 0
	return nil
}

// WindowBatchFlat stores a batch in flat contiguous buffers
type WindowBatchFlat struct {
	Inputs     []float32
	Labels     []float32
	BatchSize  int
	WindowSize int
	Channels   int
}

// MakeWindowBatchFlat flattens a batch into contiguous buffers
func MakeWindowBatchFlat(inputs, labels [][]float32, windowSize, channels int) (*WindowBatchFlat, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return &WindowBatchFlat{WindowSize: windowSize, Channels: channels}, nil
	}

	batchSize := len(inputs)
	inputDim := windowSize * channels

	flatInputs := make([]float32, batchSize*inputDim)
	flatLabels := make([]float32, batchSize)

	for i := range batchSize {
		if len(inputs[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent input dimensions at example %d: expected %d, got %d",
				i, inputDim, len(inputs[i]))
		}
		if len(labels[i]) != 1 {
			return nil, fmt.Errorf("label at example %d has %d values, expected 1", i, len(labels[i]))
		}
		copy(flatInputs[i*inputDim:], inputs[i])
		flatLabels[i] = labels[i][0]
	}

	return &WindowBatchFlat{
		Inputs:     flatInputs,
		Labels:     flatLabels,
		BatchSize:  batchSize,
		WindowSize: windowSize,
		Channels:   channels,
	}, nil
}

// ToGomlxTensors converts the batch to tensors shaped [batch, window, channels]
// and [batch, 1].
func (b *WindowBatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	// handle empty batch gracefully
	if b.BatchSize == 0 || b.WindowSize == 0 || b.Channels == 0 {
		emptyInputs := make([][][]float32, 0)
		emptyLabels := make([][]float32, 0)
		return tensors.FromAnyValue(emptyInputs), tensors.FromAnyValue(emptyLabels), nil
	}
	inputs := make([][][]float32, b.BatchSize)
	labels := make([][]float32, b.BatchSize)
	idx := 0
	for i := range b.BatchSize {
		inputs[i] = make([][]float32, b.WindowSize)
		for t := range b.WindowSize {
			inputs[i][t] = b.Inputs[idx : idx+b.Channels]
			idx += b.Channels
		}
		labels[i] = b.Labels[i : i+1]
	}
	return tensors.FromAnyValue(inputs), tensors.FromAnyValue(labels), nil
}
