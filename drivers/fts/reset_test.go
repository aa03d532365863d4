// drivers/fts/reset_test.go
package fts

import (
	"testing"

	"touchcode-go/errcode"
)

func TestSystemReset_RegisterWriteSuccess(t *testing.T) {
	bus := &fakeBus{fifo: [][]byte{event(EvtIDControllerReady)}}
	d, _ := newTestDevice(bus)

	if err := d.SystemReset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bus.writes) != 1 {
		t.Fatalf("writes = %d, want 1 reset-register write", len(bus.writes))
	}
	want := []byte{CmdHWRegWrite, 0x20, 0x00, 0x00, 0x24, SystemResetValue}
	got := bus.writes[0]
	if len(got) != len(want) {
		t.Fatalf("reset frame = % X, want % X", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reset frame = % X, want % X", got, want)
		}
	}

	up, down := d.ResetState()
	if !up || !down {
		t.Fatal("reset flags not set after successful reset")
	}
	if d.ResetInProgress() {
		t.Fatal("reset still marked in progress")
	}
	select {
	case <-d.ResetDone():
	default:
		t.Fatal("ResetDone channel not closed after completion")
	}
}

func TestSystemReset_PinPulse(t *testing.T) {
	bus := &fakeBus{fifo: [][]byte{event(EvtIDControllerReady)}}
	clk := &fakeClock{}
	pin := &fakePin{}
	d := New(Config{Transport: bus, Clock: clk, ResetPin: pin})

	if err := d.SystemReset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.writes) != 0 {
		t.Fatal("register write issued despite configured reset pin")
	}
	if len(pin.levels) != 2 || pin.levels[0] != false || pin.levels[1] != true {
		t.Fatalf("pin levels = %v, want [low high]", pin.levels)
	}
}

func TestSystemReset_RetryBound(t *testing.T) {
	bus := &fakeBus{} // controller never reports ready
	d, _ := newTestDevice(bus)

	err := d.SystemReset()
	if errcode.Of(err) != errcode.ResetFail {
		t.Fatalf("expected reset_fail, got %v", err)
	}
	if errcode.OpOf(err) != OpReset {
		t.Fatalf("op tag = %q, want %q", errcode.OpOf(err), OpReset)
	}
	// The underlying poll timeout must stay visible in the chain.
	if !errcode.Has(err, errcode.Timeout) {
		t.Fatalf("timeout cause lost in %v", err)
	}

	if len(bus.writes) != DefaultResetRetries {
		t.Fatalf("reset writes = %d, want exactly %d attempts", len(bus.writes), DefaultResetRetries)
	}
	up, down := d.ResetState()
	if up || down {
		t.Fatal("reset flags raised despite failed reset")
	}
	if d.ResetInProgress() {
		t.Fatal("reset still marked in progress after exhaustion")
	}
}

func TestSystemReset_InProgressVisibleToWaiters(t *testing.T) {
	bus := &fakeBus{fifo: [][]byte{event(EvtIDControllerReady)}}
	d, _ := newTestDevice(bus)

	before := d.ResetDone()
	select {
	case <-before:
	default:
		t.Fatal("ResetDone must be closed before any reset runs")
	}

	// Observe in-progress from the error handler, which runs inside the
	// reset's poll loop.
	bus.fifo = [][]byte{
		event(EvtIDError, 0x11),
		event(EvtIDControllerReady),
	}
	var sawInProgress bool
	d.handler = func(ev []byte) (errcode.Code, bool) {
		sawInProgress = d.ResetInProgress()
		return errcode.Error, false
	}
	if err := d.SystemReset(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawInProgress {
		t.Fatal("ResetInProgress not observable during the reset sequence")
	}
}
