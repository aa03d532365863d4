// drivers/fts/fts_test.go
package fts

import (
	"errors"
	"time"
)

// Compile-time checks.
var (
	_ Transport = (*fakeBus)(nil)
	_ Clock     = (*fakeClock)(nil)
	_ Pin       = (*fakePin)(nil)
	_ IRQLine   = (*fakeIRQ)(nil)
)

var errBus = errors.New("bus broken")

// fakeClock advances virtual time on every Sleep, so polling loops run at
// full speed while still counting their attempts.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.sleeps++
}

type fakePin struct {
	levels []bool
}

func (p *fakePin) Set(high bool) { p.levels = append(p.levels, high) }

type fakeIRQ struct {
	disables int
	enables  int
}

func (q *fakeIRQ) Disable() { q.disables++ }
func (q *fakeIRQ) Enable()  { q.enables++ }

// fakeBus scripts the controller side of every read path and records every
// write. FIFO slots and frame headers are consumed in order; when a script
// runs out, FIFO pops return no-event slots and header reads repeat the last
// entry.
type fakeBus struct {
	fifo      [][]byte
	fifoIdx   int
	fifoReads int
	fifoErrAt int // 1-based read index that fails; 0 = never

	headers    [][]byte
	headerIdx  int
	headerErr  error
	hdrReads   int

	sysinfo    []byte
	sysinfoErr error

	crcStatus byte
	crcErr    error

	config []byte

	writes   [][]byte // Write frames: cmd, addr bytes, payload
	commands [][]byte // WriteCommand frames
	writeErr error
}

func (f *fakeBus) Write(cmd byte, width AddrWidth, addr uint64, payload []byte) error {
	frame := []byte{cmd}
	for i := int(width) - 1; i >= 0; i-- {
		frame = append(frame, byte(addr>>(8*i)))
	}
	frame = append(frame, payload...)
	f.writes = append(f.writes, frame)
	return f.writeErr
}

func (f *fakeBus) WriteCommand(cmd []byte) error {
	c := make([]byte, len(cmd))
	copy(c, cmd)
	f.commands = append(f.commands, c)
	return f.writeErr
}

func (f *fakeBus) WriteRead(cmd byte, width AddrWidth, addr uint64, out []byte, dummy int) error {
	switch cmd {
	case FIFOCmdReadOne:
		f.fifoReads++
		if f.fifoErrAt != 0 && f.fifoReads >= f.fifoErrAt {
			return errBus
		}
		for i := range out {
			out[i] = 0
		}
		if f.fifoIdx < len(f.fifo) {
			copy(out, f.fifo[f.fifoIdx])
			f.fifoIdx++
		}
		return nil

	case CmdFramebufferRead:
		if len(out) == DataHeaderSize {
			f.hdrReads++
			if f.headerErr != nil {
				return f.headerErr
			}
			if len(f.headers) == 0 {
				return errBus
			}
			i := f.headerIdx
			if i >= len(f.headers) {
				i = len(f.headers) - 1
			} else {
				f.headerIdx++
			}
			copy(out, f.headers[i])
			return nil
		}
		if f.sysinfoErr != nil {
			return f.sysinfoErr
		}
		copy(out, f.sysinfo)
		return nil

	case CmdHWRegRead:
		if f.crcErr != nil {
			return f.crcErr
		}
		out[0] = f.crcStatus
		return nil

	case CmdConfigRead:
		copy(out, f.config[addr:])
		return nil
	}
	return errBus
}

// event builds one FIFO slot from its leading bytes.
func event(bytes ...byte) []byte {
	ev := make([]byte, FIFOEventSize)
	copy(ev, bytes)
	return ev
}

func header(count uint16) []byte {
	return []byte{HeaderSignature, 0x00, byte(count), byte(count >> 8)}
}

// newTestDevice wires a device with tight virtual timing: every timeout is
// 30ms at 10ms resolution, i.e. 3 poll attempts.
func newTestDevice(bus *fakeBus) (*Device, *fakeClock) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	d := New(Config{
		Transport:        bus,
		Clock:            clk,
		PollResolution:   10 * time.Millisecond,
		GeneralTimeout:   30 * time.Millisecond,
		EchoTimeout:      30 * time.Millisecond,
		SyncFrameTimeout: 30 * time.Millisecond,
	})
	return d, clk
}
