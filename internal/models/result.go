package models

import "time"

// Stage identifies the pipeline step at which a per-product failure occurred.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageLedger   Stage = "ledger"
	StagePersist  Stage = "persist"
	StageDispatch Stage = "dispatch"
)

// ProcessResult is the outcome of processing one product. Exactly one of the
// three constructors applies: Updated (pipeline completed, possibly with a
// notification), Skipped (fetch returned nothing to update), or Failed
// (a stage returned an error, caught at the item boundary).
type ProcessResult struct {
	URL     string
	Product *Product    // stored record after upsert; nil unless updated
	Event   NotifyEvent // event dispatched (or classified); EventNone otherwise
	Stage   Stage       // set only on failure
	Err     error       // set only on failure
	Skipped bool
}

// Updated reports a fully processed product and the event that was classified
// for it.
func Updated(p *Product, event NotifyEvent) ProcessResult {
	return ProcessResult{URL: p.URL, Product: p, Event: event}
}

// Skip reports a product whose fetch yielded nothing to update.
func Skip(url string) ProcessResult {
	return ProcessResult{URL: url, Skipped: true}
}

// Failed reports a per-product failure at the given stage.
func Failed(url string, stage Stage, err error) ProcessResult {
	return ProcessResult{URL: url, Stage: stage, Err: err}
}

// OK reports whether the product was fully processed.
func (r ProcessResult) OK() bool {
	return r.Err == nil && !r.Skipped
}

// RunSummary aggregates the outcome of one full processing run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"` // catalog size at run start
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Batches   int           `json:"batches"`
	Partial   bool          `json:"partial"` // true when the deadline stopped the run early
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}
