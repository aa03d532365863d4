package fts

import (
	"touchcode-go/errcode"
)

// SystemReset reboots the controller and waits for it to come back. The
// reset action is a pin pulse when a reset pin is wired, otherwise a write
// to the reset register. Up to the configured retry count, each attempt
// clears the recent-error list, gates the interrupt line and polls for the
// controller-ready event.
//
// The whole sequence is bracketed by the in-progress flag and the one-shot
// completion channel so suspend/resume logic can wait for it without joining
// the retry loop. On success both reset flags are raised.
func (d *Device) SystemReset() error {
	d.armReset()
	defer d.finishReset()

	pattern := EventPattern{int16(EvtIDControllerReady)}
	err := errcode.Wrap(errcode.ResetFail, OpReset, nil)

	for i := 0; i < d.resetRetries && err != nil; i++ {
		d.ResetErrorList()
		d.DisableInterruptAsync()

		if d.reset != nil {
			d.reset.Set(false)
			d.clock.Sleep(resetPulse)
			d.reset.Set(true)
			err = nil
		} else {
			err = d.bus.Write(CmdHWRegWrite, Addr32, AddrSystemReset, []byte{SystemResetValue})
			if err != nil {
				err = errcode.Wrap(errcode.BusWrite, OpReset, err)
			}
		}
		if err == nil {
			_, err = d.PollForEvent(pattern, d.generalTimeout)
		}
	}

	if err != nil {
		return errcode.Wrap(errcode.ResetFail, OpReset, err)
	}
	d.markReset()
	return nil
}

func (d *Device) armReset() {
	d.resetMu.Lock()
	d.resetDone = make(chan struct{})
	d.resetting = true
	d.resetMu.Unlock()
}

func (d *Device) finishReset() {
	d.resetMu.Lock()
	close(d.resetDone)
	d.resetting = false
	d.resetMu.Unlock()
}

// ResetInProgress reports whether a SystemReset call is currently running.
func (d *Device) ResetInProgress() bool {
	d.resetMu.Lock()
	defer d.resetMu.Unlock()
	return d.resetting
}

// ResetDone returns a channel closed when the current reset finishes. If no
// reset is in flight the channel is already closed.
func (d *Device) ResetDone() <-chan struct{} {
	d.resetMu.Lock()
	defer d.resetMu.Unlock()
	return d.resetDone
}

// markReset raises both reset flags, either after a successful SystemReset
// or when the poller spots an unsolicited controller-ready event.
func (d *Device) markReset() {
	d.resetMu.Lock()
	d.resetUp = true
	d.resetDown = true
	d.resetMu.Unlock()
}

func (d *Device) markUnsolicitedReset() { d.markReset() }

// ResetState reports the sticky reset flags consumed by the resume (up) and
// suspend (down) paths.
func (d *Device) ResetState() (up, down bool) {
	d.resetMu.Lock()
	defer d.resetMu.Unlock()
	return d.resetUp, d.resetDown
}

// ClearResetUp is called by the resume path once it has restored state.
func (d *Device) ClearResetUp() {
	d.resetMu.Lock()
	d.resetUp = false
	d.resetMu.Unlock()
}

// ClearResetDown is called by the suspend path once it has restored state.
func (d *Device) ClearResetDown() {
	d.resetMu.Lock()
	d.resetDown = false
	d.resetMu.Unlock()
}
