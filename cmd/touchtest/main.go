// cmd/touchtest/main.go
//
// Host harness: runs the touch service against a simulated controller and
// drives it from a command script, e.g.
//
//	touchtest -run "reset; sysinfo force; crc_check; config_read 4 8"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"touchcode-go/bus"
	"touchcode-go/drivers/fts"
	"touchcode-go/services/config"
	"touchcode-go/services/touch"
	"touchcode-go/types"
)

func main() {
	run := flag.String("run", "reset; sysinfo force; crc_check", "semicolon-separated command script")
	timeout := flag.Duration("timeout", 5*time.Second, "per-command reply timeout")
	flag.Parse()

	ctx := context.Background()
	b := bus.NewBus(16)

	sim := newSimController()
	dev := fts.New(fts.Config{
		Transport:      sim,
		PollResolution: time.Millisecond,
		GeneralTimeout: time.Second,
	})

	ui := b.NewConnection("ui")

	// Everything the service says, on screen.
	mon := ui.Subscribe(bus.T("touch", "#"))
	go func() {
		for m := range mon.Channel() {
			fmt.Printf("[monitor] %s %+v\n", topicString(m.Topic), m.Payload)
		}
	}()

	go touch.Run(ctx, b.NewConnection("touch"), dev)
	config.NewConfigService().Start(
		context.WithValue(ctx, config.CtxDeviceKey, "pico"), b.NewConnection("config"))

	// Let bring-up settle before scripting against the service.
	time.Sleep(100 * time.Millisecond)

	for _, chunk := range strings.Split(*run, ";") {
		args, err := shlex.Split(strings.TrimSpace(chunk))
		if err != nil {
			fmt.Fprintln(os.Stderr, "script parse:", err)
			os.Exit(2)
		}
		if len(args) == 0 {
			continue
		}
		if err := execute(ctx, ui, sim, args, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
			os.Exit(1)
		}
	}

	// Drain trailing events before exit.
	time.Sleep(100 * time.Millisecond)
}

func execute(ctx context.Context, ui *bus.Connection, sim *simController, args []string, timeout time.Duration) error {
	verb := args[0]
	args = args[1:]

	switch verb {
	case "sleep":
		ms, err := argInt(args, 0, 100)
		if err != nil {
			return err
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return nil

	case "inject_error":
		typ, err := argInt(args, 0, 0)
		if err != nil {
			return err
		}
		sim.injectError(byte(typ))
		return nil
	}

	var payload any
	switch verb {
	case "reset", "crc_check", "irq_enable", "irq_disable", "irq_reset":
		// no payload

	case "sysinfo":
		payload = types.SysInfoRequest{Force: len(args) > 0 && args[0] == "force"}

	case "scan_mode":
		mode, err := argInt(args, 0, -1)
		if err != nil {
			return err
		}
		settings, err := argInt(args, 1, 0)
		if err != nil {
			return err
		}
		payload = types.ScanModeSet{Mode: uint8(mode), Settings: uint8(settings)}

	case "feature":
		feat, err := argInt(args, 0, -1)
		if err != nil {
			return err
		}
		var settings []uint8
		for i := 1; i < len(args); i++ {
			v, err := argInt(args, i, -1)
			if err != nil {
				return err
			}
			settings = append(settings, uint8(v))
		}
		payload = types.FeatureSet{Feature: uint8(feat), Settings: settings}

	case "sync_frame":
		typ, err := argInt(args, 0, int(fts.LoadSysInfo))
		if err != nil {
			return err
		}
		payload = types.SyncFrameRequest{Type: uint8(typ)}

	case "config_read":
		offset, err := argInt(args, 0, 0)
		if err != nil {
			return err
		}
		length, err := argInt(args, 1, 8)
		if err != nil {
			return err
		}
		payload = types.ConfigRead{Offset: uint16(offset), Length: length}

	default:
		return fmt.Errorf("unknown command %q", verb)
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := ui.RequestWait(rctx, ui.NewMessage(bus.T("touch", "control", verb), payload, false))
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %+v\n", verb, reply.Payload)
	return nil
}

// argInt parses args[i] as an integer (0x prefix accepted); def is used when
// the argument is absent, def<0 makes it mandatory.
func argInt(args []string, i, def int) (int, error) {
	if i >= len(args) {
		if def < 0 {
			return 0, fmt.Errorf("missing argument %d", i+1)
		}
		return def, nil
	}
	v, err := strconv.ParseInt(args[i], 0, 32)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func topicString(t bus.Topic) string {
	var sb strings.Builder
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			sb.WriteByte('/')
		}
		switch v := t.At(i).(type) {
		case string:
			sb.WriteString(v)
		default:
			fmt.Fprintf(&sb, "%v", v)
		}
	}
	return sb.String()
}
