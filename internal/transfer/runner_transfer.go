package transfer

import "time"

type RunWindow struct {
	Mode  string    `json:"mode"` // "today" or "rolling"
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type RunResult struct {
	SlotID  string          `json:"slotId"`
	DraftID string          `json:"draftId"`
	Outcome *PublishOutcome `json:"outcome"`
}

// RunSummary is the scheduled runner's structured result. It is always a
// normal return value: zero due posts is not a failure.
type RunSummary struct {
	Window     RunWindow   `json:"window"`
	TotalDue   int         `json:"totalDue"`
	Results    []RunResult `json:"results"`
	SaveFailed bool        `json:"saveFailed,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func (s *RunSummary) Successes() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if r.Outcome != nil && r.Outcome.Success {
			out = append(out, r)
		}
	}
	return out
}

func (s *RunSummary) Failures() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if r.Outcome == nil || !r.Outcome.Success {
			out = append(out, r)
		}
	}
	return out
}
