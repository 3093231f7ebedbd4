package harness

// Trace statuses.
const (
	StatusOK       = "ok"       // instruction succeeded and a receipt was written
	StatusFailed   = "failed"   // instruction failed and a failed receipt was written
	StatusRejected = "rejected" // engine refused the transaction; nothing recorded
	StatusRead     = "read"     // read step, never goes through the engine
)

// TraceEntry records the outcome of one scenario step.
//
// Entries name signers by their scenario name, never by address, so a trace
// is stable across changes to program ID or key derivation.
type TraceEntry struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	Period uint64 `json:"period"`
	Signer string `json:"signer,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	// Index is the appended event's position (append only).
	Index *uint64 `json:"index,omitempty"`

	// Events is the number of events read (read only).
	Events *int `json:"events,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per step, in step order.
	Trace []TraceEntry `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends entry to the trace.
func (r *Result) AddTrace(entry TraceEntry) {
	r.Trace = append(r.Trace, entry)
}
