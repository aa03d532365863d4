//go:build rp2040

// cmd/picotouch/main.go
//
// Pico build: the touch service over SPI0, with a uartx debug console
// mirroring the service's bus traffic.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"touchcode-go/bus"
	"touchcode-go/drivers/fts"
	"touchcode-go/services/config"
	"touchcode-go/services/heartbeat"
	"touchcode-go/services/touch"
	"touchcode-go/types"
	"touchcode-go/x/conv"
)

// Wiring for the dev carrier board.
const (
	pinCS    = machine.GP17
	pinReset = machine.GP20
	pinIRQ   = machine.GP21

	consoleBaud = 115200
)

// mcuPin adapts machine.Pin to the driver's output-pin contract.
type mcuPin struct{ p machine.Pin }

func (m mcuPin) Set(high bool) { m.p.Set(high) }

// pinIRQLine gates the controller's attention line via the pin interrupt.
type pinIRQLine struct{ p machine.Pin }

func (l pinIRQLine) Enable() {
	_ = l.p.SetInterrupt(machine.PinFalling, func(machine.Pin) {})
}

func (l pinIRQLine) Disable() {
	_ = l.p.SetInterrupt(0, nil)
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] picotouch boot")

	console := uartx.UART0
	_ = console.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 4_000_000,
		Mode:      0,
	}); err != nil {
		println("[main] spi configure failed:", err.Error())
		return
	}

	cs := pinCS
	cs.Configure(machine.PinConfig{Mode: machine.PinOutput})
	cs.High()

	rst := pinReset
	rst.Configure(machine.PinConfig{Mode: machine.PinOutput})
	rst.High()

	irqPin := pinIRQ
	irqPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	dev := fts.New(fts.Config{
		Transport: fts.NewSPIBus(spi, mcuPin{cs}),
		ResetPin:  mcuPin{rst},
		IRQ:       pinIRQLine{irqPin},
	})

	ctx := context.Background()
	b := bus.NewBus(8)

	// Mirror all touch traffic to the debug console.
	mon := b.NewConnection("console").Subscribe(bus.T("touch", "#"))
	go func() {
		var line [96]byte
		for m := range mon.Channel() {
			out := append(line[:0], topicLine(m.Topic)...)
			out = append(out, ' ')
			out = payloadLine(out, m.Payload)
			println("[touch<-]", string(out))
			console.Write(out)
			console.Write([]byte{'\r', '\n'})
		}
	}()

	go touch.Run(ctx, b.NewConnection("touch"), dev)
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	config.NewConfigService().Start(
		context.WithValue(ctx, config.CtxDeviceKey, "pico"), b.NewConnection("config"))

	select {}
}

// payloadLine appends a one-line summary of the known touch payloads to out.
// The console loop must not allocate, so numbers are formatted in place.
func payloadLine(out []byte, payload any) []byte {
	var num [20]byte
	switch p := payload.(type) {
	case types.TouchState:
		out = append(out, p.Level...)
		out = append(out, '/')
		out = append(out, p.Status...)
		out = append(out, " ts="...)
		out = append(out, conv.Itoa(num[:], p.TS)...)
	case types.SysInfo:
		// fw in the high half, config version in the low half.
		out = append(out, "ver=0x"...)
		out = append(out, conv.U32Hex(num[:8], uint32(p.FWVersion)<<16|uint32(p.ConfigVersion))...)
		out = append(out, " res="...)
		out = append(out, conv.Utoa(num[:], uint64(p.ResolutionX))...)
		out = append(out, 'x')
		out = append(out, conv.Utoa(num[:], uint64(p.ResolutionY))...)
		if p.Degraded {
			out = append(out, " degraded"...)
		}
	case types.ErrorEvent:
		out = append(out, p.Code...)
		out = append(out, ' ')
		out = append(out, p.Hex...)
	case types.ResetEvent:
		if p.Unexpected {
			out = append(out, "unexpected "...)
		}
		out = append(out, "ts="...)
		out = append(out, conv.Itoa(num[:], p.TS)...)
	}
	return out
}

func topicLine(t bus.Topic) string {
	s := ""
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			s += "/"
		}
		if v, ok := t.At(i).(string); ok {
			s += v
		} else {
			s += "?"
		}
	}
	return s
}
