package train

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Noofbiz/powercast/datasets"
	"k8s.io/klog/v2"
)

// State of a Trainer. A Trainer moves forward only:
// Uninitialized -> Training -> Evaluating -> Done.
type State int

const (
	StateUninitialized State = iota
	StateTraining
	StateEvaluating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StateEvaluating:
		return "evaluating"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config for a training run.
type Config struct {
	// NumEpochs is a hard bound on the number of passes over the training
	// loader. There is no early stopping.
	NumEpochs int

	// ClipNorm, if positive, clips the global gradient norm before each
	// optimizer step.
	ClipNorm float64
}

// Result summarizes a training run.
type Result struct {
	// ValidLoss is the mean per-batch MSE over non-skipped validation
	// batches, +Inf when there were none.
	ValidLoss float64

	// EpochLosses is the mean training MSE per epoch, +Inf for an epoch in
	// which every batch was skipped.
	EpochLosses []float64

	Steps        int
	SkippedTrain int
	SkippedEval  int
	ValidBatches int
	Duration     time.Duration
}

// Evaluation is the outcome of one pass over a loader in eval mode.
type Evaluation struct {
	Loss    float64
	Batches int
	Skipped int
}

// Trainer runs the training/evaluation loop once.
type Trainer struct {
	Config    Config
	Optimizer Optimizer
	Metrics   *Metrics

	state State
	epoch int
}

// NewTrainer validates cfg and returns a Trainer in the Uninitialized state.
// metrics may be nil.
func NewTrainer(cfg Config, opt Optimizer, metrics *Metrics) (*Trainer, error) {
	if cfg.NumEpochs < 1 {
		return nil, fmt.Errorf("num_epochs must be >= 1, got %d", cfg.NumEpochs)
	}
	if opt == nil {
		return nil, errors.New("optimizer is nil")
	}
	return &Trainer{Config: cfg, Optimizer: opt, Metrics: metrics}, nil
}

// State returns the current state.
func (t *Trainer) State() State { return t.state }

// Epoch returns the 1-based epoch in progress, or the last one finished.
func (t *Trainer) Epoch() int { return t.epoch }

// Run trains model on trainLoader for Config.NumEpochs epochs and then
// evaluates it on validLoader. Batches containing NaN or Inf in inputs or
// targets are skipped: they produce no update and no error. validLoader may
// be nil, which evaluates to +Inf.
//
// The model is updated in place; loader data is never modified.
func (t *Trainer) Run(model Regressor, trainLoader, validLoader *datasets.Loader) (*Result, error) {
	if t.state != StateUninitialized {
		return nil, ErrAlreadyRun
	}
	if model == nil {
		return nil, errors.New("model is nil")
	}
	if trainLoader == nil {
		return nil, errors.New("train loader is nil")
	}

	start := time.Now()
	params := model.Parameters()
	res := &Result{EpochLosses: make([]float64, 0, t.Config.NumEpochs)}

	t.state = StateTraining
	model.SetMode(ModeTrain)
	for ep := 1; ep <= t.Config.NumEpochs; ep++ {
		t.epoch = ep
		var total float64
		var used int
		for _, idx := range trainLoader.Epoch(ep - 1) {
			inputs, targets, ok, err := loadBatch(trainLoader.Source(), idx)
			if err != nil {
				return nil, fmt.Errorf("epoch %d: %w", ep, err)
			}
			if !ok {
				res.SkippedTrain++
				t.Metrics.skipped(PhaseTrain)
				klog.V(2).InfoS("Skipping training batch with non-finite values", "epoch", ep, "size", len(idx))
				continue
			}

			preds, err := model.Forward(inputs)
			if err != nil {
				return nil, fmt.Errorf("epoch %d forward: %w", ep, err)
			}
			loss, grad := mseLoss(preds, targets)

			ZeroGrads(params)
			if err := model.Backward(grad); err != nil {
				return nil, fmt.Errorf("epoch %d backward: %w", ep, err)
			}
			if t.Config.ClipNorm > 0 {
				ClipGradNorm(params, t.Config.ClipNorm)
			}
			t.Optimizer.Step(params)

			res.Steps++
			t.Metrics.step()
			total += loss
			used++
		}

		epochLoss := math.Inf(1)
		if used > 0 {
			epochLoss = total / float64(used)
		}
		res.EpochLosses = append(res.EpochLosses, epochLoss)
		t.Metrics.epoch(epochLoss)
		klog.InfoS("Epoch finished", "epoch", ep, "of", t.Config.NumEpochs, "loss", epochLoss, "batches", used)
	}

	t.state = StateEvaluating
	ev, err := Evaluate(model, validLoader)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	t.Metrics.ObserveEval(string(datasets.SplitValid), ev)

	res.ValidLoss = ev.Loss
	res.ValidBatches = ev.Batches
	res.SkippedEval = ev.Skipped
	res.Duration = time.Since(start)
	t.state = StateDone
	return res, nil
}

// Evaluate switches model to eval mode and returns the mean per-batch MSE
// over loader, skipping batches with non-finite values. With no usable
// batches the loss is +Inf. A nil loader has no batches.
func Evaluate(model Regressor, loader *datasets.Loader) (*Evaluation, error) {
	model.SetMode(ModeEval)
	ev := &Evaluation{Loss: math.Inf(1)}
	if loader == nil {
		klog.InfoS("Warning: no evaluation data, loss is +Inf")
		return ev, nil
	}

	var total float64
	for _, idx := range loader.Epoch(0) {
		inputs, targets, ok, err := loadBatch(loader.Source(), idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			ev.Skipped++
			klog.V(2).InfoS("Skipping evaluation batch with non-finite values", "size", len(idx))
			continue
		}
		preds, err := model.Forward(inputs)
		if err != nil {
			return nil, fmt.Errorf("forward: %w", err)
		}
		loss, _ := mseLoss(preds, targets)
		total += loss
		ev.Batches++
	}
	if ev.Batches > 0 {
		ev.Loss = total / float64(ev.Batches)
	} else {
		klog.InfoS("Warning: no usable evaluation batches, loss is +Inf", "skipped", ev.Skipped)
	}
	return ev, nil
}

// Predict runs model in eval mode over every example of src in order and
// returns one prediction and one target per example, in scaled units.
// Windows with non-finite inputs get a NaN prediction.
func Predict(model Regressor, src datasets.BatchSource, batchSize int) (preds, targets []float64, err error) {
	if batchSize < 1 {
		return nil, nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}
	model.SetMode(ModeEval)
	n := src.Len()
	preds = make([]float64, 0, n)
	targets = make([]float64, 0, n)
	for bstart := 0; bstart < n; bstart += batchSize {
		bend := min(bstart+batchSize, n)
		idx := make([]int, 0, bend-bstart)
		for i := bstart; i < bend; i++ {
			idx = append(idx, i)
		}
		in32, la32, err := src.Batch(idx)
		if err != nil {
			return nil, nil, err
		}

		var finite [][]float64
		var pos []int
		for i := range in32 {
			targets = append(targets, float64(la32[i][0]))
			preds = append(preds, math.NaN())
			if datasets.AllFinite(in32[i : i+1]) {
				finite = append(finite, toFloat64(in32[i]))
				pos = append(pos, len(preds)-1)
			}
		}
		if len(finite) == 0 {
			continue
		}
		out, err := model.Forward(finite)
		if err != nil {
			return nil, nil, fmt.Errorf("forward: %w", err)
		}
		for i, p := range pos {
			preds[p] = out[i]
		}
	}
	return preds, targets, nil
}

// loadBatch reads a batch and converts it to float64. ok is false when any
// input or target is NaN or Inf.
func loadBatch(src datasets.BatchSource, idx []int) (inputs [][]float64, targets []float64, ok bool, err error) {
	in32, la32, err := src.Batch(idx)
	if err != nil {
		return nil, nil, false, err
	}
	if !datasets.AllFinite(in32) || !datasets.AllFinite(la32) {
		return nil, nil, false, nil
	}
	inputs = make([][]float64, len(in32))
	targets = make([]float64, len(la32))
	for i := range in32 {
		inputs[i] = toFloat64(in32[i])
		targets[i] = float64(la32[i][0])
	}
	return inputs, targets, true, nil
}

// mseLoss returns mean((p-y)^2) and its gradient 2(p-y)/B.
func mseLoss(preds, targets []float64) (float64, []float64) {
	grad := make([]float64, len(preds))
	if len(preds) == 0 {
		return 0, grad
	}
	var sum float64
	b := float64(len(preds))
	for i, p := range preds {
		d := p - targets[i]
		sum += d * d
		grad[i] = 2 * d / b
	}
	return sum / b, grad
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
