package mqtt

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"canscope/pkg/can"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix string
		msg    can.Message
		want   string
	}{
		{"can/bus0", can.Message{ID: 0x12}, "can/bus0/012"},
		{"can/bus0/", can.Message{ID: 0x1ABCDEF, Extended: true}, "can/bus0/01ABCDEF"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.msg); got != tt.want {
			t.Errorf("Topic(%q)=%q want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestPayload(t *testing.T) {
	b, err := json.Marshal(can.Message{ID: 0x123, Data: []byte{0xAB}, Valid: true, Error: can.ReasonCRC})
	if err != nil {
		t.Fatalf("Marshal() err=%v", err)
	}
	var got map[string]interface{}
	if err = json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() err=%v", err)
	}
	if got["id"] != float64(0x123) || got["data"] != "qw==" || got["error"] != "crc error" {
		t.Fatalf("payload=%s", b)
	}
}

func TestService_WithoutBroker(t *testing.T) {
	h := New(Config{Topic: "can"})
	if err := h.Connect(); err != nil {
		t.Fatalf("Connect() err=%v", err)
	}

	done := make(chan struct{})
	go func() {
		h.Service()
		close(done)
	}()
	h.C <- can.Message{ID: 1}
	close(h.C)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Service did not return after close")
	}
	if err := h.Disconnect(); err != nil {
		t.Fatalf("Disconnect() err=%v", err)
	}
}
