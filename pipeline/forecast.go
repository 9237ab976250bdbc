package pipeline

import (
	"math"

	"github.com/Noofbiz/powercast/datasets"
	"github.com/Noofbiz/powercast/train"
	"gonum.org/v1/gonum/stat"
)

// Scores are error statistics in original units over the windows where
// both the actual and the predicted value are finite.
type Scores struct {
	N    int
	RMSE float64
	MAE  float64
	Bias float64 // mean(predicted - actual)
}

// Forecast is a model's output on one split, in original units.
type Forecast struct {
	Split     string
	Actual    []float64
	Predicted []float64
	Scores    Scores
}

// Predict runs model over ds in order and maps predictions and targets back
// to original units with scaler.
func Predict(model train.Regressor, ds *datasets.WindowDataset, scaler datasets.MinMaxScaler, batchSize int) (*Forecast, error) {
	preds, targets, err := train.Predict(model, ds, batchSize)
	if err != nil {
		return nil, err
	}
	f := &Forecast{
		Split:     ds.Name,
		Actual:    scaler.Inverse(targets),
		Predicted: scaler.Inverse(preds),
	}
	f.Scores = Score(f.Actual, f.Predicted)
	return f, nil
}

// Score compares predicted with actual. With no finite pairs every
// statistic is NaN.
func Score(actual, predicted []float64) Scores {
	n := min(len(actual), len(predicted))
	diff := make([]float64, 0, n)
	for i := range n {
		a, p := actual[i], predicted[i]
		if isFinite(a) && isFinite(p) {
			diff = append(diff, p-a)
		}
	}
	if len(diff) == 0 {
		return Scores{RMSE: math.NaN(), MAE: math.NaN(), Bias: math.NaN()}
	}

	sq := make([]float64, len(diff))
	abs := make([]float64, len(diff))
	for i, d := range diff {
		sq[i] = d * d
		abs[i] = math.Abs(d)
	}
	return Scores{
		N:    len(diff),
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
		MAE:  stat.Mean(abs, nil),
		Bias: stat.Mean(diff, nil),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
