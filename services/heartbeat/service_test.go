package heartbeat

import (
	"context"
	"testing"
	"time"

	"touchcode-go/bus"
)

func TestHeartbeat_PublishesStateAtConfiguredInterval(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("heartbeat_test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &Service{}
	if err := svc.Start(ctx, b.NewConnection("heartbeat")); err != nil {
		t.Fatalf("start: %v", err)
	}

	sub := conn.Subscribe(bus.Topic{"heartbeat", "state"})
	defer conn.Unsubscribe(sub)

	// Speed the ticker up well below the 1s default.
	conn.Publish(conn.NewMessage(bus.Topic{"config", "heartbeat"},
		map[string]any{"interval_ms": float64(10)}, true))

	var last uint32
	for i := 0; i < 2; i++ {
		select {
		case m := <-sub.Channel():
			p, ok := m.Payload.(map[string]any)
			if !ok {
				t.Fatalf("payload type: got %T", m.Payload)
			}
			seq, ok := p["seq"].(uint32)
			if !ok {
				t.Fatalf("seq type: got %T", p["seq"])
			}
			if seq <= last {
				t.Fatalf("seq did not advance: %d after %d", seq, last)
			}
			last = seq
			if _, ok := p["ts_ms"].(int64); !ok {
				t.Fatalf("ts_ms type: got %T", p["ts_ms"])
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for heartbeat")
		}
	}
}
