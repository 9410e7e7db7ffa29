//go:build !linux

package timerq

import "errors"

// applySchedParams is a stub for platforms without sched_setattr support.
func applySchedParams(_ *SchedParams) error {
	return errors.New("sched params: not supported on this platform")
}
