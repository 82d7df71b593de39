package visitors

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/pkg/errors"
)

// ErrNotEnoughSamples is returned by Trend when the history is shorter than the period.
var ErrNotEnoughSamples = errors.New("not enough visitor samples")

// TrendReading summarizes recent total-visitor movement.
type TrendReading struct {
	Period  int     `json:"period"`
	EMA     float64 `json:"ema"`
	Latest  int     `json:"latest"`
	Rising  bool    `json:"rising"`
	Samples int     `json:"samples"`
}

// Trend computes an exponential moving average of recent total visitor counts.
func (f *Feed) Trend(period int) (TrendReading, error) {
	if period < 2 {
		return TrendReading{}, errors.Errorf("trend period must be at least 2, got %d", period)
	}

	f.mu.RLock()
	samples := append([]float64(nil), f.history...)
	f.mu.RUnlock()

	if len(samples) < period {
		return TrendReading{}, errors.Wrapf(ErrNotEnoughSamples, "need %d, have %d", period, len(samples))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	values := helper.ChanToSlice(ema.Compute(helper.SliceToChan(samples)))
	if len(values) == 0 {
		return TrendReading{}, errors.Wrapf(ErrNotEnoughSamples, "need %d, have %d", period, len(samples))
	}

	latest := samples[len(samples)-1]
	avg := values[len(values)-1]
	return TrendReading{
		Period:  period,
		EMA:     avg,
		Latest:  int(latest),
		Rising:  latest > avg,
		Samples: len(samples),
	}, nil
}
