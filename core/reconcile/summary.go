package reconcile

// StopReason explains why a run ended.
type StopReason string

const (
	// StopTarget means the requested number of items was gathered.
	StopTarget StopReason = "target"
	// StopExhausted means the service returned fewer items than requested.
	StopExhausted StopReason = "exhausted"
	// StopCeiling means the offset passed the configured ceiling.
	StopCeiling StopReason = "ceiling"
	// StopCancelled means the caller's context ended the run.
	StopCancelled StopReason = "cancelled"
	// StopMaxRounds means the round trip bound was hit.
	StopMaxRounds StopReason = "max_rounds"
)

// RunSummary provides aggregate statistics for a run.
type RunSummary struct {
	// Rounds is the number of completed round trips.
	Rounds int `json:"rounds"`

	// Offset is the final offset.
	Offset int `json:"offset"`

	// OffsetCeiling is the ceiling the run was bounded by.
	OffsetCeiling int `json:"offset_ceiling"`

	// Excluded counts items dropped as already known.
	Excluded int `json:"excluded"`

	// Deferred counts deferrals; an item deferred twice counts twice.
	Deferred int `json:"deferred"`

	// Disqualified counts complete items that failed qualification.
	Disqualified int `json:"disqualified"`

	// Qualified counts items returned.
	Qualified int `json:"qualified"`

	// Pending is the number of items still deferred when the run ended.
	Pending int `json:"pending"`

	// Stop is why the run ended.
	Stop StopReason `json:"stop"`
}

func (s *RunSummary) add(o BatchOutcome) {
	s.Excluded += o.Excluded
	s.Deferred += o.Deferred
	s.Disqualified += o.Disqualified
	s.Qualified += len(o.Qualified)
}
