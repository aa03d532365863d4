// services/touch/touch_test.go
package touch

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"touchcode-go/bus"
	"touchcode-go/drivers/fts"
	"touchcode-go/types"
)

var _ fts.Transport = (*simController)(nil)

// simController plays the firmware side of the protocol: a system-reset
// register write queues a controller-ready event, system commands are echoed
// into the FIFO, and load-data commands bump the framebuffer frame counter.
type simController struct {
	mu      sync.Mutex
	fifo    [][]byte
	counter uint16
	sysinfo []byte
	config  []byte
	writes  [][]byte
}

func (c *simController) pushEvent(ev []byte) {
	c.mu.Lock()
	slot := make([]byte, fts.FIFOEventSize)
	copy(slot, ev)
	c.fifo = append(c.fifo, slot)
	c.mu.Unlock()
}

func (c *simController) Write(cmd byte, width fts.AddrWidth, addr uint64, payload []byte) error {
	c.mu.Lock()
	c.writes = append(c.writes, append([]byte{cmd}, payload...))
	c.mu.Unlock()
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
			copy(out, c.sysinfo)
		}
	case fts.CmdHWRegRead:
		out[0] = 0x00 // CRC status clean
	case fts.CmdConfigRead:
		copy(out, c.config[addr:])
	}
	return nil
}

// validSysInfoBlob builds a parseable system area with a recognizable
// firmware version.
func validSysInfoBlob() []byte {
	b := make([]byte, fts.SysInfoSize)
	b[0] = fts.HeaderSignature
	b[1] = fts.LoadSysInfo
	b[16] = 0x10 // fw version 0x5A10, little endian
	b[17] = 0x5A
	b[72] = 0xD0 // 720 x 1440
	b[73] = 0x02
	b[74] = 0xA0
	b[75] = 0x05
	b[76] = 16
	b[77] = 34
	return b
}

type harness struct {
	bus  *bus.Bus
	ctrl *simController
	conn *bus.Connection // test-side connection
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := &simController{
		sysinfo: validSysInfoBlob(),
		config:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
	dev := fts.New(fts.Config{
		Transport:        ctrl,
		PollResolution:   time.Millisecond,
		GeneralTimeout:   50 * time.Millisecond,
		EchoTimeout:      50 * time.Millisecond,
		SyncFrameTimeout: 50 * time.Millisecond,
	})

	b := bus.NewBus(16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Run(ctx, b.NewConnection("touch"), dev)

	return &harness{bus: b, ctrl: ctrl, conn: b.NewConnection("touch_test")}
}

func (h *harness) configure(t *testing.T, cfg types.TouchConfig) {
	t.Helper()
	h.conn.Publish(h.conn.NewMessage(bus.Topic{"config", "touch"}, cfg, true))
}

func waitForState(t *testing.T, sub *bus.Subscription, level string) types.TouchState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-sub.Channel():
			st, ok := m.Payload.(types.TouchState)
			if !ok {
				t.Fatalf("state payload type: got %T", m.Payload)
			}
			if st.Level == level {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for touch/state level %q", level)
		}
	}
}

func request(t *testing.T, h *harness, verb string, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg := h.conn.NewMessage(bus.Topic{"touch", "control", verb}, payload, false)
	reply, err := h.conn.RequestWait(ctx, msg)
	if err != nil {
		t.Fatalf("%s request: %v", verb, err)
	}
	return reply.Payload
}

func TestTouchService_BringUpPublishesSysInfo(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	infoSub := h.conn.Subscribe(bus.Topic{"touch", "sysinfo"})
	defer infoSub.Unsubscribe()

	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{AutoSysInfo: true})
	waitForState(t, stateSub, "ready")

	select {
	case m := <-infoSub.Channel():
		info, ok := m.Payload.(types.SysInfo)
		if !ok {
			t.Fatalf("sysinfo payload type: got %T", m.Payload)
		}
		if info.FWVersion != 0x5A10 {
			t.Fatalf("fw version = %04X, want 5A10", info.FWVersion)
		}
		if info.ResolutionX != 720 || info.ResolutionY != 1440 {
			t.Fatalf("resolution = %dx%d", info.ResolutionX, info.ResolutionY)
		}
		if info.Degraded {
			t.Fatal("sysinfo flagged degraded after clean bring-up")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for touch/sysinfo")
	}
}

func TestTouchService_ResetVerb(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	evSub := h.conn.Subscribe(bus.Topic{"touch", "event", "reset"})
	defer evSub.Unsubscribe()

	payload := request(t, h, "reset", types.ResetRequest{})
	if ok, _ := payload.(types.OKReply); !ok.OK {
		t.Fatalf("reset reply = %#v", payload)
	}

	select {
	case m := <-evSub.Channel():
		ev, ok := m.Payload.(types.ResetEvent)
		if !ok {
			t.Fatalf("reset event payload type: got %T", m.Payload)
		}
		if ev.Unexpected {
			t.Fatal("explicit reset reported as unexpected")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for touch/event/reset")
	}
}

func TestTouchService_SysInfoForceReload(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	payload := request(t, h, "sysinfo", types.SysInfoRequest{Force: true})
	if ok, _ := payload.(types.OKReply); !ok.OK {
		t.Fatalf("sysinfo reply = %#v", payload)
	}

	// Force reload goes through the sync-frame protocol: the controller must
	// have seen exactly one load command.
	h.ctrl.mu.Lock()
	counter := h.ctrl.counter
	h.ctrl.mu.Unlock()
	if counter != 1 {
		t.Fatalf("frame counter = %d, want 1", counter)
	}
}

func TestTouchService_ConfigReadVerb(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	payload := request(t, h, "config_read", types.ConfigRead{Offset: 4, Length: 4})
	data, ok := payload.(types.DataReply)
	if !ok || !data.OK {
		t.Fatalf("config_read reply = %#v", payload)
	}
	if !bytes.Equal(data.Data, []byte{4, 5, 6, 7}) {
		t.Fatalf("config data = % X", data.Data)
	}

	payload = request(t, h, "config_read", types.ConfigRead{Offset: 0, Length: 0})
	if rep, _ := payload.(types.ErrorReply); rep.OK {
		t.Fatalf("zero-length read accepted: %#v", payload)
	}
}

func TestTouchService_UnknownVerb(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	payload := request(t, h, "self_destruct", nil)
	rep, ok := payload.(types.ErrorReply)
	if !ok || rep.OK {
		t.Fatalf("unknown verb reply = %#v", payload)
	}
}

func TestTouchService_ErrorEventsForwarded(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	errSub := h.conn.Subscribe(bus.Topic{"touch", "event", "error"})
	defer errSub.Unsubscribe()

	// A CRC-domain error event sits in the FIFO ahead of the ready event the
	// next reset produces; the poll drains and forwards it.
	h.ctrl.pushEvent([]byte{fts.EvtIDError, 0x22, 0xAB})
	request(t, h, "reset", types.ResetRequest{})

	select {
	case m := <-errSub.Channel():
		ev, ok := m.Payload.(types.ErrorEvent)
		if !ok {
			t.Fatalf("error event payload type: got %T", m.Payload)
		}
		if ev.Code != "crc" {
			t.Fatalf("error code = %q, want crc", ev.Code)
		}
		if ev.Hex[:6] != "F322AB" {
			t.Fatalf("hex dump = %q", ev.Hex)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for touch/event/error")
	}
}

func TestTouchService_IRQVerbs(t *testing.T) {
	h := newHarness(t)

	stateSub := h.conn.Subscribe(bus.Topic{"touch", "state"})
	defer stateSub.Unsubscribe()
	waitForState(t, stateSub, "idle")
	h.configure(t, types.TouchConfig{})
	waitForState(t, stateSub, "ready")

	for _, verb := range []string{"irq_disable", "irq_enable", "irq_reset"} {
		payload := request(t, h, verb, nil)
		if ok, _ := payload.(types.OKReply); !ok.OK {
			t.Fatalf("%s reply = %#v", verb, payload)
		}
	}
}
