package fts

import (
	"time"

	"touchcode-go/errcode"
)

// Any marks a wildcard position in an EventPattern.
const Any int16 = -1

// EventPattern matches the leading bytes of a FIFO slot. Each element is a
// literal byte value or Any. An empty pattern matches every slot.
type EventPattern []int16

// Matches reports whether every non-wildcard position equals the
// corresponding event byte.
func (p EventPattern) Matches(ev []byte) bool {
	for i, want := range p {
		if want != Any && int16(ev[i]) != want {
			return false
		}
	}
	return true
}

// PollResult reports the matched slot and how many error events were drained
// and absorbed before the match. Callers must treat ErrorEvents > 0 as
// "found, but preceded by errors" — softer than a timeout, still not clean.
type PollResult struct {
	Event       [FIFOEventSize]byte
	ErrorEvents int
}

// PollForEvent pops FIFO slots until one matches the pattern or the timeout
// budget (timeout / poll resolution attempts) is spent.
//
// Error events never match directly: they are counted, remembered and handed
// to the configured handler; a stop classification aborts immediately.
// An unsolicited controller-ready event (when the pattern is not looking for
// one) means the controller rebooted behind our back, so both reset flags
// are raised for the suspend/resume logic to notice.
func (d *Device) PollForEvent(pattern EventPattern, timeout time.Duration) (PollResult, error) {
	var res PollResult
	var ev [FIFOEventSize]byte

	attempts := int(timeout / d.pollResolution)
	for retry := 0; retry < attempts; retry++ {
		if err := d.bus.WriteRead(FIFOCmdReadOne, AddrNone, 0, ev[:], dummyFIFO); err != nil {
			return res, errcode.Wrap(errcode.BusRead, OpPoll, err)
		}

		if ev[0] == EvtIDError {
			res.ErrorEvents++
			d.pushErrorEvent(ev[:])
			if d.handler != nil {
				if code, stop := d.handler(ev[:]); stop {
					return res, errcode.Wrap(errcode.HandlerStop, OpPoll, code)
				}
			}
		} else if ev[0] == EvtIDControllerReady && !pattern.seeksControllerReady() {
			d.markUnsolicitedReset()
		}

		if pattern.Matches(ev[:]) {
			res.Event = ev
			return res, nil
		}
		d.clock.Sleep(d.pollResolution)
	}
	return res, errcode.Wrap(errcode.Timeout, OpPoll, nil)
}

func (p EventPattern) seeksControllerReady() bool {
	return len(p) > 0 && p[0] == int16(EvtIDControllerReady)
}

// pollForErrorType scans the FIFO for an error event whose type byte is in
// the given set. The handler is deliberately not involved: this is used
// right after a forced reset to fish for CRC diagnostics. A timeout simply
// means no such event showed up.
func (d *Device) pollForErrorType(types []byte, timeout time.Duration) (byte, bool) {
	var ev [FIFOEventSize]byte
	attempts := int(timeout / d.pollResolution)
	for retry := 0; retry < attempts; retry++ {
		if err := d.bus.WriteRead(FIFOCmdReadOne, AddrNone, 0, ev[:], dummyFIFO); err != nil {
			return 0, false
		}
		if ev[0] == EvtIDError {
			for _, t := range types {
				if ev[1] == t {
					return t, true
				}
			}
		}
		d.clock.Sleep(d.pollResolution)
	}
	return 0, false
}
