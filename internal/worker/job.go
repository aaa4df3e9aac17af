package worker

import (
	"time"

	"github.com/raoulx24/dropzip/internal/archive"
)

const (
	TriggerCLI      = "cli"
	TriggerInbox    = "inbox"
	TriggerSchedule = "schedule"
)

// Request asks for one archive build.
type Request struct {
	ID      string
	Name    string // archive base name, without extension
	Inputs  []string
	Trigger string
	// FromSelection removes Inputs from the selection once the build succeeds.
	FromSelection bool
}

// Outcome is delivered once per submitted request.
type Outcome struct {
	Request    Request
	Result     *archive.Result
	Pruned     []string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

type job struct {
	req  Request
	done chan Outcome
}
