package fts

import (
	"errors"
	"sync"
	"time"

	"touchcode-go/errcode"
	"touchcode-go/x/mathx"
)

var errTransferTooLong = errors.New("fts: transfer exceeds scratch buffer")

// ErrorHandler classifies a raw FIFO error event. The returned code is kept
// with the event in the recent-error list; stop aborts the poll that drained
// the event, short-circuiting any retry logic above it.
type ErrorHandler func(event []byte) (code errcode.Code, stop bool)

// Config wires a Device to its collaborators. Transport is mandatory;
// everything else has a usable default.
type Config struct {
	Transport Transport
	Clock     Clock   // defaults to SystemClock
	ResetPin  Pin     // nil: reset via the hardware register instead
	IRQ       IRQLine // nil: interrupt gating is counted but not acted on
	Handler   ErrorHandler

	PollResolution   time.Duration
	GeneralTimeout   time.Duration
	EchoTimeout      time.Duration
	SyncFrameTimeout time.Duration
	ResetRetries     int
	SyncFrameRetries int
}

// Device drives the controller protocol. Apart from the interrupt gate and
// the reset-state accessors, methods are not safe for concurrent use: the
// recent-error list and reset flags are shared protocol state, so exactly one
// protocol operation may be in flight at a time (the touch service serializes
// them).
type Device struct {
	bus     Transport
	clock   Clock
	reset   Pin
	irq     IRQLine
	handler ErrorHandler

	pollResolution   time.Duration
	generalTimeout   time.Duration
	echoTimeout      time.Duration
	syncFrameTimeout time.Duration
	resetRetries     int
	syncFrameRetries int

	info SystemInfo

	// Recent FIFO error events, newest last.
	errEvents [][FIFOEventSize]byte

	// Interrupt gate. depth>0 iff the line is physically disabled.
	gateMu sync.Mutex
	depth  int

	// Reset coordination for suspend/resume collaborators.
	resetMu   sync.Mutex
	resetUp   bool
	resetDown bool
	resetting bool
	resetDone chan struct{}
}

const errEventsCap = 8

func New(cfg Config) *Device {
	done := make(chan struct{})
	close(done) // no reset in flight yet

	d := &Device{
		bus:              cfg.Transport,
		clock:            cfg.Clock,
		reset:            cfg.ResetPin,
		irq:              cfg.IRQ,
		handler:          cfg.Handler,
		pollResolution:   cfg.PollResolution,
		generalTimeout:   cfg.GeneralTimeout,
		echoTimeout:      cfg.EchoTimeout,
		syncFrameTimeout: cfg.SyncFrameTimeout,
		resetRetries:     cfg.ResetRetries,
		syncFrameRetries: cfg.SyncFrameRetries,
		resetDone:        done,
	}
	if d.clock == nil {
		d.clock = SystemClock
	}
	if d.pollResolution <= 0 {
		d.pollResolution = DefaultPollResolution
	}
	if d.generalTimeout <= 0 {
		d.generalTimeout = DefaultGeneralTimeout
	}
	if d.echoTimeout <= 0 {
		d.echoTimeout = DefaultEchoTimeout
	}
	if d.syncFrameTimeout <= 0 {
		d.syncFrameTimeout = DefaultSyncFrameTimeout
	}
	if d.resetRetries <= 0 {
		d.resetRetries = DefaultResetRetries
	}
	if d.syncFrameRetries <= 0 {
		d.syncFrameRetries = DefaultSyncFrameRetries
	}
	// Runaway retry budgets just stretch timeouts; keep them sane.
	d.resetRetries = mathx.Clamp(d.resetRetries, 1, 10)
	d.syncFrameRetries = mathx.Clamp(d.syncFrameRetries, 1, 10)
	return d
}

// SetErrorHandler installs (or clears) the FIFO error-event classifier. Must
// not be called while a protocol operation is in flight.
func (d *Device) SetErrorHandler(h ErrorHandler) {
	d.handler = h
}

// InitCore re-establishes a known baseline after probe or reattach: clears
// the recent-error list, zeroes the interrupt-gate counter and performs a
// full system reset.
func (d *Device) InitCore() error {
	d.ResetErrorList()
	d.ResetInterruptCount()
	return d.SystemReset()
}

// ResetErrorList drops all remembered FIFO error events.
func (d *Device) ResetErrorList() {
	d.errEvents = d.errEvents[:0]
}

// RecentErrors returns copies of the FIFO error events drained since the
// last ResetErrorList, newest last.
func (d *Device) RecentErrors() [][]byte {
	out := make([][]byte, 0, len(d.errEvents))
	for i := range d.errEvents {
		ev := make([]byte, FIFOEventSize)
		copy(ev, d.errEvents[i][:])
		out = append(out, ev)
	}
	return out
}

func (d *Device) pushErrorEvent(ev []byte) {
	if len(d.errEvents) == errEventsCap {
		copy(d.errEvents, d.errEvents[1:])
		d.errEvents = d.errEvents[:errEventsCap-1]
	}
	var slot [FIFOEventSize]byte
	copy(slot[:], ev)
	d.errEvents = append(d.errEvents, slot)
}

// SystemInfo returns the last parsed system area (or the sentinel defaults
// after a failed read).
func (d *Device) SystemInfo() SystemInfo {
	return d.info
}
