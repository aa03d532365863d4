package fts

import (
	"tinygo.org/x/drivers"
)

// AddrWidth selects how many address bytes follow the opcode on the wire,
// most significant byte first. Zero means no address field (FIFO pop).
type AddrWidth uint8

const (
	AddrNone AddrWidth = 0
	Addr8    AddrWidth = 1
	Addr16   AddrWidth = 2
	Addr24   AddrWidth = 3
	Addr32   AddrWidth = 4
)

// Transport is the register-addressed byte channel to the controller.
// Implementations own framing and chip-select; the driver only composes
// opcode, address and payload.
type Transport interface {
	// Write sends opcode + address + payload in one transaction.
	Write(cmd byte, width AddrWidth, addr uint64, payload []byte) error
	// WriteRead sends opcode + address, discards dummy turnaround bytes,
	// then fills out.
	WriteRead(cmd byte, width AddrWidth, addr uint64, out []byte, dummy int) error
	// WriteCommand sends a raw opcode-first command unchanged.
	WriteCommand(cmd []byte) error
}

// Pin is a minimal output pin, used for chip-select and hardware reset.
type Pin interface {
	Set(high bool)
}

// IRQLine enables/disables the host interrupt line for the controller.
type IRQLine interface {
	Enable()
	Disable()
}

// SPIBus implements Transport over a full-duplex SPI peripheral with a
// dedicated chip-select pin held low for the whole transaction.
type SPIBus struct {
	spi drivers.SPI
	cs  Pin

	// Fixed scratch buffers to avoid per-call heap allocations. Sized for
	// the largest transaction: sysinfo read (1+2 header + dummy + blob).
	w [SysInfoSize + 8]byte
	r [SysInfoSize + 8]byte
}

var _ Transport = (*SPIBus)(nil)

func NewSPIBus(spi drivers.SPI, cs Pin) *SPIBus {
	cs.Set(true)
	return &SPIBus{spi: spi, cs: cs}
}

// header writes opcode + big-endian address into w and returns its length.
func (b *SPIBus) header(cmd byte, width AddrWidth, addr uint64) int {
	b.w[0] = cmd
	for i := int(width); i > 0; i-- {
		b.w[i] = byte(addr)
		addr >>= 8
	}
	return 1 + int(width)
}

func (b *SPIBus) Write(cmd byte, width AddrWidth, addr uint64, payload []byte) error {
	n := b.header(cmd, width, addr)
	n += copy(b.w[n:], payload)
	return b.tx(n)
}

func (b *SPIBus) WriteRead(cmd byte, width AddrWidth, addr uint64, out []byte, dummy int) error {
	n := b.header(cmd, width, addr)
	total := n + dummy + len(out)
	if total > len(b.w) {
		return errTransferTooLong
	}
	for i := n; i < total; i++ {
		b.w[i] = 0
	}
	b.cs.Set(false)
	err := b.spi.Tx(b.w[:total], b.r[:total])
	b.cs.Set(true)
	if err != nil {
		return err
	}
	copy(out, b.r[n+dummy:total])
	return nil
}

func (b *SPIBus) WriteCommand(cmd []byte) error {
	n := copy(b.w[:], cmd)
	return b.tx(n)
}

func (b *SPIBus) tx(n int) error {
	b.cs.Set(false)
	err := b.spi.Tx(b.w[:n], nil)
	b.cs.Set(true)
	return err
}
