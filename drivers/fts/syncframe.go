package fts

import (
	"touchcode-go/errcode"
)

// RequestSyncFrame asks the firmware to reload a host-data frame and waits
// for it to land. The framebuffer header carries a little-endian counter the
// firmware bumps once the frame is ready; the baseline is captured before
// the load command and the header is re-read until the counter moves.
// Header reads with a bad signature don't fail the wait, they just don't
// update the counter. Each outer retry restarts from a fresh baseline.
func (d *Device) RequestSyncFrame(dataType byte) error {
	request := []byte{CmdSystem, SysCmdLoadData, dataType}
	var hdr [DataHeaderSize]byte

	lastErr := errcode.Wrap(errcode.Timeout, OpSyncFrame, nil)
	for attempt := 0; attempt < d.syncFrameRetries; attempt++ {
		if err := d.bus.WriteRead(CmdFramebufferRead, Addr16, AddrFramebuffer, hdr[:], dummyFramebuffer); err != nil {
			lastErr = errcode.Wrap(errcode.BusRead, OpSyncFrame, err)
			continue
		}
		if hdr[0] != HeaderSignature {
			lastErr = errcode.Wrap(errcode.WrongSignature, OpSyncFrame, nil)
			continue
		}
		base := uint16(hdr[3])<<8 | uint16(hdr[2])

		if err := d.bus.WriteCommand(request); err != nil {
			lastErr = errcode.Wrap(errcode.BusWrite, OpSyncFrame, err)
			continue
		}

		count := base
		attempts := int(d.syncFrameTimeout / d.pollResolution)
		for retry := 0; count == base && retry < attempts; retry++ {
			err := d.bus.WriteRead(CmdFramebufferRead, Addr16, AddrFramebuffer, hdr[:], dummyFramebuffer)
			if err == nil && hdr[0] == HeaderSignature {
				count = uint16(hdr[3])<<8 | uint16(hdr[2])
			}
			d.clock.Sleep(d.pollResolution)
		}
		if count != base {
			return nil
		}
		lastErr = errcode.Wrap(errcode.Timeout, OpSyncFrame, nil)
	}
	return lastErr
}
