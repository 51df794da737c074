package group

import "bidsprep/internal/record"

// AggregateReadiness re-validates every recording and recomputes Ready. The
// sink hears about it only when the value flips or on first computation.
func (g *Group) AggregateReadiness() bool {
	ready := false
	if g.ContainsRequired {
		ready = true
		for _, rec := range g.Recordings() {
			if !rec.CheckComplete().IsGood() {
				ready = false
			}
		}
		if len(g.Recordings()) != len(g.Jobs) {
			ready = false
		}
	}
	if g.computed && ready == g.Ready {
		return ready
	}
	g.computed = true
	g.Ready = ready
	g.deps.Sink.ReadinessChanged(g.ID, ready)
	return ready
}

// Failures describes every recording that currently fails validation.
func (g *Group) Failures() []*record.ValidationFailure {
	var out []*record.ValidationFailure
	for _, rec := range g.Recordings() {
		if f := rec.Validity().Failure(rec.Path()); f != nil {
			out = append(out, f)
		}
	}
	return out
}
