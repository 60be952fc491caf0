package harness

// Trace event types.
const (
	EventRun    = "run"
	EventOutput = "output"
)

// TraceEvent records one entity run or one published output.
type TraceEvent struct {
	Type   string `json:"type"` // "run" or "output"
	Entity string `json:"entity"`
	Model  string `json:"model"`

	// Run events.
	Status string `json:"status,omitempty"` // "ok" or "failed"
	Code   string `json:"code,omitempty"`   // error code of a failed run

	// Output events.
	Port string `json:"port,omitempty"`
	Rows int    `json:"rows,omitempty"`

	Seq int64 `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace lists runs and outputs, ordered by entity name then port.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRunTrace adds a run to the trace.
func (r *Result) AddRunTrace(entity, model, status, code string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventRun,
		Entity: entity,
		Model:  model,
		Status: status,
		Code:   code,
		Seq:    seq,
	})
}

// AddOutputTrace adds a published output to the trace.
func (r *Result) AddOutputTrace(entity, model, port string, rows int, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventOutput,
		Entity: entity,
		Model:  model,
		Port:   port,
		Rows:   rows,
		Seq:    seq,
	})
}
