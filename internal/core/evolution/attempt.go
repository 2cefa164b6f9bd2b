package evolution

// SelfCheckFailed is the error summary recorded when an artifact builds but
// its self-check exits non-zero or times out.
const SelfCheckFailed = "artifact failed self-check"

// Attempt is one generate/build/validate cycle for a task.
type Attempt struct {
	Index  int
	Script string
	Err    string
}

// Failed reports whether the attempt carries an error summary.
func (a Attempt) Failed() bool {
	return a.Err != ""
}

// Outcome is the result of driving a task through the retry controller.
type Outcome struct {
	Task      Task
	Version   int
	Artifact  string
	Succeeded bool
	// Attempt is the index of the successful attempt, or the number of
	// attempts made when the task was given up.
	Attempt     int
	LastError   string
	PullRequest PullRequest
}

// Handoff tells a supervisor which artifact should run next.
type Handoff struct {
	Version  int    `json:"version"`
	Artifact string `json:"artifact"`
	Task     int    `json:"task"`
}
