package fts

import (
	"touchcode-go/errcode"
)

// CheckEcho waits for the firmware to echo a previously sent command as a
// status-update event. The echo carries at most FIFOEventSize-3 command
// bytes, so longer commands are matched on their prefix.
//
// A match preceded by intervening error events is still an echo failure:
// the command landed, but the firmware complained on the way.
func (d *Device) CheckEcho(cmd []byte) error {
	if len(cmd) < 1 {
		return errcode.Wrap(errcode.InvalidParams, OpEcho, nil)
	}
	n := len(cmd)
	if n+3 > FIFOEventSize {
		n = FIFOEventSize - 3
	}

	pattern := make(EventPattern, n+2)
	pattern[0] = int16(EvtIDStatusUpdate)
	pattern[1] = int16(EvtTypeStatusEcho)
	for i := 0; i < n; i++ {
		pattern[i+2] = int16(cmd[i])
	}

	res, err := d.PollForEvent(pattern, d.echoTimeout)
	if err != nil {
		return errcode.Wrap(errcode.EchoFail, OpEcho, err)
	}
	if res.ErrorEvents > 0 {
		return errcode.Wrap(errcode.EchoFail, OpEcho, nil)
	}
	return nil
}

// WriteFwCommand sends a raw firmware command and verifies its echo.
func (d *Device) WriteFwCommand(cmd []byte) error {
	if err := d.bus.WriteCommand(cmd); err != nil {
		return errcode.Wrap(errcode.BusWrite, OpEcho, err)
	}
	return d.CheckEcho(cmd)
}
