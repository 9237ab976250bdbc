package pipeline

import (
	"fmt"

	"github.com/Noofbiz/powercast/config"
	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/lstm"
	"github.com/Noofbiz/powercast/train"
)

// ModelConfig maps the pipeline parameters onto the LSTM architecture.
func ModelConfig(cfg config.Config) lstm.Config {
	return lstm.Config{
		InputSize:  cfg.NChannels,
		HiddenSize: cfg.HiddenSize,
		NumLayers:  cfg.NumLayers,
		Dropout:    cfg.Dropout,
		Seed:       cfg.RandomSeed,
	}
}

// Train builds a fresh model, trains it on p.Train and validates it on
// p.Valid. The training loader is shuffled when cfg.Shuffle is set; the
// validation loader never is.
func Train(cfg config.Config, p *Prepared, metrics *train.Metrics) (*lstm.Model, *train.Result, error) {
	if p.Train == nil || p.Train.Len() == 0 {
		return nil, nil, ErrInsufficientData
	}
	model, err := lstm.New(ModelConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("build model: %w", err)
	}
	opt, err := train.NewOptimizer(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, nil, err
	}
	trainer, err := train.NewTrainer(train.Config{NumEpochs: cfg.NumEpochs, ClipNorm: cfg.ClipNorm}, opt, metrics)
	if err != nil {
		return nil, nil, err
	}

	trainLoader, err := datasets.NewLoader(p.Train, cfg.BatchSize, cfg.Shuffle, cfg.RandomSeed)
	if err != nil {
		return nil, nil, err
	}
	validLoader, err := datasets.NewLoader(p.Valid, cfg.BatchSize, false, cfg.RandomSeed)
	if err != nil {
		return nil, nil, err
	}

	res, err := trainer.Run(model, trainLoader, validLoader)
	if err != nil {
		return nil, nil, fmt.Errorf("train: %w", err)
	}
	return model, res, nil
}

// EvaluateSplit computes the scaled-unit loss of model on one split.
func EvaluateSplit(model train.Regressor, ds *datasets.WindowDataset, batchSize int) (*train.Evaluation, error) {
	loader, err := datasets.NewLoader(ds, batchSize, false, 0)
	if err != nil {
		return nil, err
	}
	return train.Evaluate(model, loader)
}
