// services/touch/touch.go
package touch

import (
	"context"
	"encoding/json"
	"time"

	"touchcode-go/bus"
	"touchcode-go/drivers/fts"
	"touchcode-go/errcode"
	"touchcode-go/types"
	"touchcode-go/x/conv"
	"touchcode-go/x/mathx"
	"touchcode-go/x/timex"
)

// -----------------------------------------------------------------------------
// Entry point
// -----------------------------------------------------------------------------

// Run owns dev for its lifetime. All protocol operations go through the loop
// goroutine, one at a time; concurrent control requests queue on the bus.
func Run(ctx context.Context, conn *bus.Connection, dev *fts.Device) {
	s := &service{
		conn: conn,
		dev:  dev,
	}
	s.loop(ctx)
}

type service struct {
	conn *bus.Connection
	dev  *fts.Device
	cfg  types.TouchConfig

	level  string
	status string
}

// -----------------------------------------------------------------------------
// Main loop
// -----------------------------------------------------------------------------

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "touch"})
	ctrlSub := s.conn.Subscribe(bus.Topic{"touch", "control", "+"})
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	// FIFO error events surface on the bus as they are drained. The handler
	// runs inside the loop goroutine (the device is only driven from here),
	// so publishing directly is safe.
	s.dev.SetErrorHandler(s.onErrorEvent)

	s.publishState("idle", "awaiting_config")

	var hb *time.Ticker
	var hbC <-chan time.Time
	defer func() {
		if hb != nil {
			hb.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return

		case msg := <-cfgSub.Channel():
			var cfg types.TouchConfig
			if err := decodeJSON(msg.Payload, &cfg); err != nil {
				println("[touch] config decode failed:", err.Error())
				s.publishState("error", "config_decode_failed")
				continue
			}
			s.cfg = cfg

			if hb != nil {
				hb.Stop()
				hb, hbC = nil, nil
			}
			if cfg.HeartbeatMs > 0 {
				hb = time.NewTicker(time.Duration(cfg.HeartbeatMs) * time.Millisecond)
				hbC = hb.C
			}

			s.bringUp()

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-hbC:
			// Re-stamp the retained state so watchers see liveness.
			s.publishState(s.level, s.status)
		}
	}
}

// bringUp runs the full initialization sequence: baseline reset, then the
// CRC check and system-area read when configured to do so.
func (s *service) bringUp() {
	s.publishState("resetting", "init_core")
	if err := s.dev.InitCore(); err != nil {
		println("[touch] init failed:", err.Error())
		s.publishState("error", string(errcode.Of(err)))
		s.drainResetFlags(false)
		return
	}
	s.drainResetFlags(false)

	if s.cfg.AutoSysInfo {
		err := s.dev.CRCCheck()
		s.drainResetFlags(false) // CRCCheck resets on purpose
		if err != nil {
			println("[touch] crc check failed:", err.Error())
			s.publishState("error", string(errcode.Of(err)))
			return
		}
		err = s.dev.ReadSysInfo(true)
		s.publishSysInfo(err != nil)
		if err != nil {
			println("[touch] sysinfo read failed:", err.Error())
			s.publishState("error", string(errcode.Of(err)))
			return
		}
	}
	s.publishState("ready", "configured")
}

// -----------------------------------------------------------------------------
// Control verbs
// -----------------------------------------------------------------------------

func (s *service) handleControl(msg *bus.Message) {
	verb, _ := msg.Topic.At(2).(string)

	switch verb {
	case "reset":
		if err := s.dev.SystemReset(); err != nil {
			s.publishState("error", string(errcode.Of(err)))
			s.replyErr(msg, err)
			s.drainResetFlags(false)
			return
		}
		s.drainResetFlags(false)
		s.publishState("ready", "reset_ok")
		s.replyOK(msg)

	case "crc_check":
		err := s.dev.CRCCheck()
		if err != nil {
			println("[touch] crc check failed:", err.Error())
			s.replyErr(msg, err)
		} else {
			s.replyOK(msg)
		}
		// The check resets the controller itself; the flags it leaves behind
		// are part of the operation, not a spontaneous reboot.
		s.drainResetFlags(false)

	case "sysinfo":
		var req types.SysInfoRequest
		if err := decodeJSON(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidPayload, "sysinfo", err))
			return
		}
		err := s.dev.ReadSysInfo(req.Force)
		s.publishSysInfo(err != nil)
		s.afterOp(msg, err)

	case "scan_mode":
		var req types.ScanModeSet
		if err := decodeJSON(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidPayload, "scan_mode", err))
			return
		}
		s.afterOp(msg, s.dev.SetScanMode(req.Mode, req.Settings))

	case "feature":
		var req types.FeatureSet
		if err := decodeJSON(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidPayload, "feature", err))
			return
		}
		s.afterOp(msg, s.dev.SetFeature(req.Feature, req.Settings...))

	case "sync_frame":
		var req types.SyncFrameRequest
		if err := decodeJSON(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidPayload, "sync_frame", err))
			return
		}
		s.afterOp(msg, s.dev.RequestSyncFrame(req.Type))

	case "config_read":
		var req types.ConfigRead
		if err := decodeJSON(msg.Payload, &req); err != nil {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidPayload, "config_read", err))
			return
		}
		if req.Length <= 0 || req.Length > maxConfigRead {
			s.replyErr(msg, errcode.Wrap(errcode.InvalidParams, "config_read", nil))
			return
		}
		out := make([]byte, req.Length)
		if err := s.dev.ReadConfigMemory(req.Offset, out); err != nil {
			s.replyErr(msg, err)
			s.drainResetFlags(true)
			return
		}
		s.replyData(msg, out)
		s.drainResetFlags(true)

	case "irq_enable":
		s.dev.EnableInterrupt()
		s.replyOK(msg)

	case "irq_disable":
		s.dev.DisableInterrupt()
		s.replyOK(msg)

	case "irq_reset":
		s.dev.ResetInterruptCount()
		s.replyOK(msg)

	default:
		s.replyErr(msg, errcode.Wrap(errcode.UnknownOp, verb, nil))
	}
}

const maxConfigRead = 256

// afterOp finishes the common verbs: reply with the operation's outcome, then
// surface any controller reboot the operation's polling happened to observe.
func (s *service) afterOp(msg *bus.Message, err error) {
	if err != nil {
		println("[touch] op failed:", err.Error())
		s.replyErr(msg, err)
	} else {
		s.replyOK(msg)
	}
	s.drainResetFlags(true)
}

// drainResetFlags consumes the device's reset markers. For an explicit reset
// they are expected; anywhere else they mean the controller rebooted on its
// own, which watchers need to hear about.
func (s *service) drainResetFlags(unexpected bool) {
	up, down := s.dev.ResetState()
	if !up && !down {
		return
	}
	s.dev.ClearResetUp()
	s.dev.ClearResetDown()
	if unexpected {
		println("[touch] unsolicited controller reset observed")
	}
	s.conn.Publish(s.conn.NewMessage(
		bus.Topic{"touch", "event", "reset"},
		types.ResetEvent{Unexpected: unexpected, TS: timex.NowMs()},
		false,
	))
}

// onErrorEvent is the driver's ErrorHandler: it forwards every drained FIFO
// error event onto the bus and classifies CRC-domain events, without ever
// aborting the poll that found them.
func (s *service) onErrorEvent(event []byte) (errcode.Code, bool) {
	code := errcode.Error
	if len(event) >= 2 && mathx.Between(event[1], byte(0x20), byte(0x25)) {
		code = errcode.CRC
	}

	ev := make([]byte, len(event))
	copy(ev, event)
	var hexBuf [2 * fts.FIFOEventSize]byte

	s.conn.Publish(s.conn.NewMessage(
		bus.Topic{"touch", "event", "error"},
		types.ErrorEvent{
			Event: ev,
			Hex:   string(conv.Hex(hexBuf[:], ev)),
			Code:  string(code),
			TS:    timex.NowMs(),
		},
		false,
	))
	return code, false
}

// -----------------------------------------------------------------------------
// Publishing helpers
// -----------------------------------------------------------------------------

func (s *service) publishState(level, status string) {
	s.level, s.status = level, status
	s.conn.Publish(s.conn.NewMessage(
		bus.Topic{"touch", "state"},
		types.TouchState{Level: level, Status: status, TS: timex.NowMs()},
		true,
	))
}

func (s *service) publishSysInfo(degraded bool) {
	info := s.dev.SystemInfo()

	resX, resY := info.ScrResX, info.ScrResY
	if s.cfg.SwapXY {
		resX, resY = resY, resX
	}

	rel := make([]byte, len(info.ReleaseInfo))
	copy(rel, info.ReleaseInfo[:])

	s.conn.Publish(s.conn.NewMessage(
		bus.Topic{"touch", "sysinfo"},
		types.SysInfo{
			APIVersion:    info.APIVerRev,
			ChipID:        info.Chip0ID,
			FWVersion:     info.FWVer,
			ConfigVersion: info.CfgVer,
			ConfigProject: info.CfgProjectID,
			CxVersion:     info.CxVer,
			ScreenRx:      int(info.ScrRxLen),
			ScreenTx:      int(info.ScrTxLen),
			ResolutionX:   resX,
			ResolutionY:   resY,
			ReleaseInfo:   rel,
			Degraded:      degraded,
		},
		true,
	))
}

func (s *service) replyOK(req *bus.Message) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, types.OKReply{OK: true}, false)
}

func (s *service) replyErr(req *bus.Message, err error) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: err.Error()}, false)
}

func (s *service) replyData(req *bus.Message, data []byte) {
	if !req.CanReply() {
		return
	}
	s.conn.Reply(req, types.DataReply{OK: true, Data: data}, false)
}

func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
