package fts

import (
	"touchcode-go/errcode"
)

// ChannelAddrs is one group of framebuffer addresses for a sensing channel:
// raw samples, filtered samples, strength and baseline.
type ChannelAddrs struct {
	Raw      uint16
	Filter   uint16
	Strength uint16
	Baseline uint16
}

// SystemInfo is the controller's system area: firmware and configuration
// identity plus the framebuffer memory map. It is reloaded by the firmware
// after every reset and decoded wholesale by ReadSysInfo.
type SystemInfo struct {
	APIVerRev    uint16
	APIVerMinor  uint8
	APIVerMajor  uint8
	Chip0Ver     uint16
	Chip0ID      uint16
	Chip1Ver     uint16
	Chip1ID      uint16
	FWVer        uint16
	SVNRev       uint16
	CfgVer       uint16
	CfgProjectID uint16
	CxVer        uint16
	CxProjectID  uint16

	CfgAFEVer      uint8
	CxAFEVer       uint8
	PanelCfgAFEVer uint8
	Protocol       uint8

	DieInfo     [DieInfoSize]byte
	ReleaseInfo [ReleaseInfoSize]byte

	FWCrc  uint32
	CfgCrc uint32

	ScrResX  uint16
	ScrResY  uint16
	ScrTxLen uint8
	ScrRxLen uint8
	KeyLen   uint8
	ForceLen uint8

	DbgInfoAddr uint16

	MsTouch   ChannelAddrs
	SsTouchTx ChannelAddrs
	SsTouchRx ChannelAddrs
	Key       ChannelAddrs
	Force     ChannelAddrs
	SsHoverTx ChannelAddrs
	SsHoverRx ChannelAddrs
	SsProxTx  ChannelAddrs
	SsProxRx  ChannelAddrs
}

// ReadSysInfo refreshes the cached SystemInfo from the controller. With
// forceReload the firmware is first asked to re-publish the frame via the
// sync-frame protocol; otherwise whatever the last reset left in the
// framebuffer is decoded directly.
//
// On any failure the cached record is overwritten with sentinel values
// (0xFF pattern for transport errors, 0x00 for protocol/layout errors) and
// the underlying error is still returned.
func (d *Device) ReadSysInfo(forceReload bool) error {
	if forceReload {
		if err := d.RequestSyncFrame(LoadSysInfo); err != nil {
			d.defaultSysInfo(isTransportErr(err))
			return err
		}
	}

	var data [SysInfoSize]byte
	if err := d.bus.WriteRead(CmdFramebufferRead, Addr16, AddrFramebuffer, data[:], dummyFramebuffer); err != nil {
		d.defaultSysInfo(true)
		return errcode.Wrap(errcode.BusRead, OpSysInfo, err)
	}

	info, err := parseSysInfo(data[:])
	if err != nil {
		d.defaultSysInfo(false)
		return err
	}
	d.info = info
	return nil
}

// parseSysInfo decodes the fixed-layout system area. The cursor must land
// exactly on SysInfoSize; anything else means the layout drifted and the
// whole record is untrustworthy.
func parseSysInfo(data []byte) (SystemInfo, error) {
	var info SystemInfo

	if len(data) != SysInfoSize {
		return info, errcode.Wrap(errcode.Layout, OpSysInfo, nil)
	}
	if data[0] != HeaderSignature {
		return info, errcode.Wrap(errcode.WrongSignature, OpSysInfo, nil)
	}
	if data[1] != LoadSysInfo {
		return info, errcode.Wrap(errcode.DiffDataType, OpSysInfo, nil)
	}

	c := cursor{data: data, idx: 4} // signature, type, 2 reserved

	info.APIVerRev = c.u16()
	info.APIVerMinor = c.u8()
	info.APIVerMajor = c.u8()
	info.Chip0Ver = c.u16()
	info.Chip0ID = c.u16()
	info.Chip1Ver = c.u16()
	info.Chip1ID = c.u16()
	info.FWVer = c.u16()
	info.SVNRev = c.u16()
	info.CfgVer = c.u16()
	info.CfgProjectID = c.u16()
	info.CxVer = c.u16()
	info.CxProjectID = c.u16()
	info.CfgAFEVer = c.u8()
	info.CxAFEVer = c.u8()
	info.PanelCfgAFEVer = c.u8()
	info.Protocol = c.u8()
	c.bytes(info.DieInfo[:])
	c.bytes(info.ReleaseInfo[:])
	info.FWCrc = c.u32()
	info.CfgCrc = c.u32()
	c.skip(8)

	info.ScrResX = c.u16()
	info.ScrResY = c.u16()
	// Protocol generation 6 reports resolution in a coarser unit; convert
	// before deciding orientation so the swap sees final coordinates.
	if info.Protocol == 6 {
		info.ScrResX = (info.ScrResX+1)*10 - 1
		info.ScrResY = (info.ScrResY+1)*10 - 1
	}
	if info.ScrResX > info.ScrResY {
		info.ScrResX, info.ScrResY = info.ScrResY, info.ScrResX
	}

	info.ScrTxLen = c.u8()
	info.ScrRxLen = c.u8()
	info.KeyLen = c.u8()
	info.ForceLen = c.u8()
	c.skip(40)

	info.DbgInfoAddr = c.u16()
	c.skip(6)

	for _, ch := range []*ChannelAddrs{
		&info.MsTouch, &info.SsTouchTx, &info.SsTouchRx,
		&info.Key, &info.Force,
		&info.SsHoverTx, &info.SsHoverRx,
		&info.SsProxTx, &info.SsProxRx,
	} {
		ch.Raw = c.u16()
		ch.Filter = c.u16()
		ch.Strength = c.u16()
		ch.Baseline = c.u16()
	}

	if c.idx != SysInfoSize {
		return info, errcode.Wrap(errcode.Layout, OpSysInfo, nil)
	}
	return info, nil
}

type cursor struct {
	data []byte
	idx  int
}

func (c *cursor) u8() uint8 {
	v := c.data[c.idx]
	c.idx++
	return v
}

func (c *cursor) u16() uint16 {
	v := uint16(c.data[c.idx]) | uint16(c.data[c.idx+1])<<8
	c.idx += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := uint32(c.data[c.idx]) | uint32(c.data[c.idx+1])<<8 |
		uint32(c.data[c.idx+2])<<16 | uint32(c.data[c.idx+3])<<24
	c.idx += 4
	return v
}

func (c *cursor) bytes(dst []byte) {
	copy(dst, c.data[c.idx:c.idx+len(dst)])
	c.idx += len(dst)
}

func (c *cursor) skip(n int) { c.idx += n }

// defaultSysInfo overwrites the identity fields with sentinels so readers
// can tell a failed refresh apart from real data: 0xFF when the transport
// failed (nothing was read), 0x00 when the blob itself was rejected.
func (d *Device) defaultSysInfo(transportErr bool) {
	fill := byte(0x00)
	if transportErr {
		fill = 0xFF
	}
	v16 := uint16(fill) | uint16(fill)<<8

	d.info.FWVer = v16
	d.info.CfgProjectID = v16
	for i := range d.info.ReleaseInfo {
		d.info.ReleaseInfo[i] = fill
	}
	d.info.CxVer = v16
	d.info.ScrRxLen = 0
	d.info.ScrTxLen = 0
}

// isTransportErr reports whether the failure chain bottoms out in a raw bus
// error rather than a protocol-level rejection.
func isTransportErr(err error) bool {
	return errcode.Has(err, errcode.BusRead) || errcode.Has(err, errcode.BusWrite)
}
