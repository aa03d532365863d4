// Package fts provides constants for opcodes, event identifiers, register
// addresses and protocol timing used to drive the touch controller.
package fts

import "time"

// FIFO geometry.
const (
	FIFOEventSize  = 8    // one FIFO slot in bytes
	FIFOCmdReadOne = 0x86 // opcode: pop a single FIFO slot
	dummyFIFO      = 1    // turnaround bytes before FIFO data
)

// Event identifiers (byte 0 of a FIFO slot).
const (
	EvtIDNoEvent         = 0x00
	EvtIDControllerReady = 0x03
	EvtIDStatusUpdate    = 0x43
	EvtIDError           = 0xF3
)

// Event types (byte 1, identifier-dependent).
const (
	EvtTypeStatusEcho = 0x01

	// CRC failure subtypes carried by error events.
	EvtTypeErrorCRCCfgHead   = 0x20
	EvtTypeErrorCRCCfg       = 0x21
	EvtTypeErrorCRCCx        = 0x22
	EvtTypeErrorCRCCxHead    = 0x23
	EvtTypeErrorCRCCxSub     = 0x24
	EvtTypeErrorCRCCxSubHead = 0x25
)

// Command opcodes.
const (
	CmdScanMode        = 0xA0
	CmdFeature         = 0xA2
	CmdSystem          = 0xA4
	CmdFramebufferRead = 0xA7
	CmdConfigRead      = 0xA8
	CmdHWRegWrite      = 0xFA
	CmdHWRegRead       = 0xFB
)

// Scan modes.
const (
	ScanModeActive   = 0x00
	ScanModeLowPower = 0x01
	ScanModeJitter   = 0x02
	ScanModeLocked   = 0x03
)

// System command subtypes and host-data identifiers.
const (
	SysCmdLoadData = 0x06
	LoadSysInfo    = 0x01
)

// Hardware register addresses (32-bit address space).
const (
	AddrSystemReset  = 0x20000024
	SystemResetValue = 0x80
	AddrCRCStatus    = 0x20000078
	CRCMask          = 0x03
	dummyHWReg       = 1
)

// Framebuffer / config memory (16-bit address space).
const (
	AddrFramebuffer  = 0x0000
	AddrConfigOffset = 0x0000
	dummyFramebuffer = 1
	dummyConfig      = 1
)

// Host-data frame header.
const (
	HeaderSignature = 0xA5
	DataHeaderSize  = 4
)

// System-area blob geometry.
const (
	SysInfoSize     = 200
	DieInfoSize     = 16
	ReleaseInfoSize = 8
)

// Protocol timing defaults; all overridable through Config.
const (
	DefaultPollResolution   = 10 * time.Millisecond
	DefaultGeneralTimeout   = 5 * time.Second
	DefaultEchoTimeout      = 500 * time.Millisecond
	DefaultSyncFrameTimeout = 2 * time.Second
	DefaultResetRetries     = 3
	DefaultSyncFrameRetries = 2

	resetPulse = 10 * time.Millisecond
)

// Operation tags carried in errcode.E.Op so callers can tell which protocol
// step a cause came from.
const (
	OpPoll       = "poll"
	OpEcho       = "echo"
	OpReset      = "reset"
	OpCRCCheck   = "crc_check"
	OpSyncFrame  = "sync_frame"
	OpSysInfo    = "sysinfo"
	OpScanMode   = "scan_mode"
	OpFeature    = "feature"
	OpSysCmd     = "sys_cmd"
	OpConfigRead = "config_read"
)
