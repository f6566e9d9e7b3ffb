package pipeline

import (
	"sync/atomic"
)

// Profiler aggregates step timings across runs. It is safe for concurrent
// use.
type Profiler struct {
	Runs    atomic.Int64
	TotalNs atomic.Int64

	stepNs    [StepCrop + 1]atomic.Int64
	stepCount [StepCrop + 1]atomic.Int64
}

// Record adds one run. Nil results are ignored.
func (p *Profiler) Record(res *Result) {
	if res == nil {
		return
	}
	p.Runs.Add(1)
	p.TotalNs.Add(res.Processing.TotalNs)
	for _, s := range res.Applied {
		if s.Step < StepContrast || s.Step > StepCrop {
			continue
		}
		p.stepNs[s.Step].Add(s.Duration.Nanoseconds())
		p.stepCount[s.Step].Add(1)
	}
}

// StepTiming is the cumulative cost of one step kind.
type StepTiming struct {
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	MeanMs  float64 `json:"mean_ms"`
}

// Snapshot returns cumulative timings keyed by step name.
func (p *Profiler) Snapshot() map[string]StepTiming {
	out := make(map[string]StepTiming)
	for _, k := range allSteps {
		n := p.stepCount[k].Load()
		if n == 0 {
			continue
		}
		total := float64(p.stepNs[k].Load()) / 1e6
		out[k.String()] = StepTiming{Count: n, TotalMs: total, MeanMs: total / float64(n)}
	}
	return out
}
