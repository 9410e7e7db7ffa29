//go:build linux

package timerq

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// applySchedParams sets the scheduling policy of the calling thread via
// sched_setattr(2). The caller must have locked the goroutine to its OS
// thread. Real-time policies require CAP_SYS_NICE or an appropriate rlimit.
func applySchedParams(p *SchedParams) error {
	attr := unix.SchedAttr{
		Size:   unix.SizeofSchedAttr,
		Policy: schedPolicyValue(p.Policy),
	}
	if p.Policy == SchedFIFO || p.Policy == SchedRR {
		attr.Priority = uint32(p.Priority)
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("sched_setattr: %w", err)
	}
	return nil
}

func schedPolicyValue(p SchedPolicy) uint32 {
	switch p {
	case SchedFIFO:
		return unix.SCHED_FIFO
	case SchedRR:
		return unix.SCHED_RR
	default:
		return unix.SCHED_NORMAL
	}
}
