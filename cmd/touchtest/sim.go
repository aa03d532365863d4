// cmd/touchtest/sim.go
package main

import (
	"sync"

	"touchcode-go/drivers/fts"
)

var _ fts.Transport = (*simController)(nil)

// simController stands in for the firmware on a host build: a system-reset
// register write queues a controller-ready event, system commands are echoed
// into the FIFO and load-data commands bump the framebuffer frame counter.
type simController struct {
	mu      sync.Mutex
	fifo    [][]byte
	counter uint16
	sysinfo [fts.SysInfoSize]byte
	config  [256]byte
	crc     byte
}

func newSimController() *simController {
	c := &simController{}
	b := c.sysinfo[:]
	b[0] = fts.HeaderSignature
	b[1] = fts.LoadSysInfo
	b[16] = 0x10 // fw version 0x5A10
	b[17] = 0x5A
	b[22] = 0x42 // config project
	b[72] = 0xD0 // 720 x 1440
	b[73] = 0x02
	b[74] = 0xA0
	b[75] = 0x05
	b[76] = 16
	b[77] = 34
	for i := range c.config {
		c.config[i] = byte(i)
	}
	return c
}

func (c *simController) pushEvent(ev []byte) {
	c.mu.Lock()
	slot := make([]byte, fts.FIFOEventSize)
	copy(slot, ev)
	c.fifo = append(c.fifo, slot)
	c.mu.Unlock()
}

// injectError queues a raw error event, for exercising the error path from
// the command script.
func (c *simController) injectError(typ byte) {
	c.pushEvent([]byte{fts.EvtIDError, typ})
}

func (c *simController) Write(cmd byte, width fts.AddrWidth, addr uint64, payload []byte) error {
	if cmd == fts.CmdHWRegWrite && addr == fts.AddrSystemReset {
		c.pushEvent([]byte{fts.EvtIDControllerReady})
	}
	return nil
}

func (c *simController) WriteCommand(cmd []byte) error {
	if len(cmd) >= 2 && cmd[0] == fts.CmdSystem {
		if cmd[1] == fts.SysCmdLoadData {
			c.mu.Lock()
			c.counter++
			c.mu.Unlock()
			return nil
		}
		c.pushEvent(append([]byte{fts.EvtIDStatusUpdate, fts.EvtTypeStatusEcho}, cmd...))
	}
	return nil
}

func (c *simController) WriteRead(cmd byte, width fts.AddrWidth, addr uint64, out []byte, dummy int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd {
	case fts.FIFOCmdReadOne:
		for i := range out {
			out[i] = 0
		}
		if len(c.fifo) > 0 {
			copy(out, c.fifo[0])
			c.fifo = c.fifo[1:]
		}
	case fts.CmdFramebufferRead:
		if len(out) == fts.DataHeaderSize {
			out[0] = fts.HeaderSignature
			out[1] = 0x00
			out[2] = byte(c.counter)
			out[3] = byte(c.counter >> 8)
		} else {
			copy(out, c.sysinfo[:])
		}
	case fts.CmdHWRegRead:
		out[0] = c.crc
	case fts.CmdConfigRead:
		copy(out, c.config[addr:])
	}
	return nil
}
