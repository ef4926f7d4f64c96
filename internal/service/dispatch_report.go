package service

// DispatchStatus summarizes how a transition's notifications went.
type DispatchStatus string

const (
	DispatchNone    DispatchStatus = "none"
	DispatchSent    DispatchStatus = "sent"
	DispatchPartial DispatchStatus = "partial"
	DispatchFailed  DispatchStatus = "failed"
)

// DispatchFailure describes one message that was not delivered.
type DispatchFailure struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Error     string `json:"error"`
}

// DispatchReport is returned with every transition so callers can see which
// notifications were delivered after the mutation committed.
type DispatchReport struct {
	Status    DispatchStatus    `json:"status"`
	Attempted int               `json:"attempted"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
	Failures  []DispatchFailure `json:"failures"`
}

func newDispatchReport() DispatchReport {
	return DispatchReport{Status: DispatchNone, Failures: []DispatchFailure{}}
}

func (r *DispatchReport) merge(other DispatchReport) {
	r.Attempted += other.Attempted
	r.Delivered += other.Delivered
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
	r.settle()
}

func (r *DispatchReport) settle() {
	switch {
	case r.Attempted == 0:
		r.Status = DispatchNone
	case r.Failed == 0:
		r.Status = DispatchSent
	case r.Delivered == 0:
		r.Status = DispatchFailed
	default:
		r.Status = DispatchPartial
	}
}

// Details renders the report for an error envelope.
func (r DispatchReport) Details() map[string]any {
	return map[string]any{
		"notifications": r,
	}
}
