package train

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "powercast"

// Phase labels for skipped batches.
const (
	PhaseTrain = "train"
	PhaseEval  = "eval"
)

// Metrics instruments training. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	SkippedBatches *prometheus.CounterVec
	Steps          prometheus.Counter
	Epochs         prometheus.Counter
	EpochLoss      prometheus.Gauge
	EvalLoss       *prometheus.GaugeVec
}

// NewMetrics creates the training metrics and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SkippedBatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_batches_total",
				Help:      "Batches skipped because inputs or targets contained non-finite values",
			},
			[]string{"phase"},
		),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizer_steps_total",
			Help:      "Optimizer updates applied",
		}),
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "epochs_total",
			Help:      "Training epochs completed",
		}),
		EpochLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "epoch_train_loss",
			Help:      "Mean training MSE of the last completed epoch (scaled units)",
		}),
		EvalLoss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "eval_loss",
				Help:      "Mean per-batch MSE of the last evaluation pass (scaled units)",
			},
			[]string{"split"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.SkippedBatches, m.Steps, m.Epochs, m.EpochLoss, m.EvalLoss)
	}
	return m
}

func (m *Metrics) skipped(phase string) {
	if m == nil {
		return
	}
	m.SkippedBatches.WithLabelValues(phase).Inc()
}

func (m *Metrics) step() {
	if m == nil {
		return
	}
	m.Steps.Inc()
}

func (m *Metrics) epoch(loss float64) {
	if m == nil {
		return
	}
	m.Epochs.Inc()
	m.EpochLoss.Set(loss)
}

// ObserveEval records the loss and skipped batches of an evaluation pass.
func (m *Metrics) ObserveEval(split string, ev *Evaluation) {
	if m == nil || ev == nil {
		return
	}
	m.EvalLoss.WithLabelValues(split).Set(ev.Loss)
	if ev.Skipped > 0 {
		m.SkippedBatches.WithLabelValues(PhaseEval).Add(float64(ev.Skipped))
	}
}
