package fts

import (
	"touchcode-go/errcode"
)

// SetScanMode selects a scan mode. Low-power mode takes no settings byte, so
// the command is sent one byte shorter.
func (d *Device) SetScanMode(mode, settings uint8) error {
	cmd := []byte{CmdScanMode, mode, settings}
	if mode == ScanModeLowPower {
		cmd = cmd[:2]
	}
	if err := d.bus.WriteCommand(cmd); err != nil {
		return errcode.Wrap(errcode.BusWrite, OpScanMode, err)
	}
	return nil
}

// SetFeature enables or configures a firmware feature with its option bytes.
func (d *Device) SetFeature(feat uint8, settings ...uint8) error {
	cmd := make([]byte, 0, 2+len(settings))
	cmd = append(cmd, CmdFeature, feat)
	cmd = append(cmd, settings...)
	if err := d.bus.WriteCommand(cmd); err != nil {
		return errcode.Wrap(errcode.BusWrite, OpFeature, err)
	}
	return nil
}

// WriteSysCmd executes a system command and waits for its echo. Host-data
// loads are special-cased through the sync-frame protocol since their
// completion is signalled by the frame counter, not an echo; they need the
// data type as first setting byte.
func (d *Device) WriteSysCmd(sysCmd uint8, settings ...uint8) error {
	if sysCmd == SysCmdLoadData {
		if len(settings) < 1 {
			return errcode.Wrap(errcode.InvalidParams, OpSysCmd, nil)
		}
		return d.RequestSyncFrame(settings[0])
	}

	cmd := make([]byte, 0, 2+len(settings))
	cmd = append(cmd, CmdSystem, sysCmd)
	cmd = append(cmd, settings...)
	if err := d.WriteFwCommand(cmd); err != nil {
		return errcode.Wrap(errcode.Of(err), OpSysCmd, err)
	}
	return nil
}

// ReadConfigMemory reads len(out) bytes from the controller's config memory
// starting at offset.
func (d *Device) ReadConfigMemory(offset uint16, out []byte) error {
	addr := uint64(AddrConfigOffset) + uint64(offset)
	if err := d.bus.WriteRead(CmdConfigRead, Addr16, addr, out, dummyConfig); err != nil {
		return errcode.Wrap(errcode.BusRead, OpConfigRead, err)
	}
	return nil
}
