package fts

import (
	"touchcode-go/errcode"
)

// CRC8 computes the controller's 8-bit checksum: polynomial 0x9B, MSB first,
// no reflection, no final XOR. An empty buffer is an error, not a zero
// checksum.
func CRC8(buf []byte) (byte, error) {
	if len(buf) == 0 {
		return 0, errcode.Wrap(errcode.InvalidParams, OpCRCCheck, nil)
	}
	var rem byte
	for _, b := range buf {
		rem ^= b
		for bit := 0; bit < 8; bit++ {
			if rem&0x80 != 0 {
				rem = rem<<1 ^ 0x9B
			} else {
				rem <<= 1
			}
		}
	}
	return rem, nil
}

var (
	crcCfgTypes = []byte{EvtTypeErrorCRCCfgHead, EvtTypeErrorCRCCfg}
	crcCxTypes  = []byte{EvtTypeErrorCRCCx, EvtTypeErrorCRCCxHead,
		EvtTypeErrorCRCCxSub, EvtTypeErrorCRCCxSubHead}
)

// CRCCheck verifies that no CRC error is blocking the firmware. The status
// register alone cannot tell which data region failed, so when it reads
// clean a reset is forced specifically to surface the disambiguating error
// event: first the config-CRC signatures are fished for, then the cx ones.
// No event within the budget on either poll means the domain is intact.
func (d *Device) CRCCheck() error {
	var val [1]byte
	if err := d.bus.WriteRead(CmdHWRegRead, Addr32, AddrCRCStatus, val[:], dummyHWReg); err != nil {
		return errcode.Wrap(errcode.BusRead, OpCRCCheck, err)
	}
	if val[0]&CRCMask != 0 {
		return errcode.Wrap(errcode.CRC, OpCRCCheck, nil)
	}

	if err := d.SystemReset(); err != nil {
		return err
	}
	if _, found := d.pollForErrorType(crcCfgTypes, d.generalTimeout); found {
		return errcode.Wrap(errcode.CRCConfig, OpCRCCheck, nil)
	}
	if _, found := d.pollForErrorType(crcCxTypes, d.generalTimeout); found {
		return errcode.Wrap(errcode.CRCCx, OpCRCCheck, nil)
	}
	return nil
}
