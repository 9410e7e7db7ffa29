package timerq

import "fmt"

// SchedPolicy names an OS thread scheduling policy for the dispatcher.
type SchedPolicy int

const (
	// SchedOther is the default time-sharing policy.
	SchedOther SchedPolicy = iota
	// SchedFIFO is real-time first-in-first-out scheduling.
	SchedFIFO
	// SchedRR is real-time round-robin scheduling.
	SchedRR
)

func (p SchedPolicy) String() string {
	switch p {
	case SchedOther:
		return "other"
	case SchedFIFO:
		return "fifo"
	case SchedRR:
		return "rr"
	default:
		return "unknown"
	}
}

// ParseSchedPolicy converts a configuration string ("other", "fifo", "rr")
// into a SchedPolicy.
func ParseSchedPolicy(s string) (SchedPolicy, error) {
	switch s {
	case "other":
		return SchedOther, nil
	case "fifo":
		return SchedFIFO, nil
	case "rr":
		return SchedRR, nil
	default:
		return SchedOther, fmt.Errorf("timerq: unknown sched policy %q", s)
	}
}
