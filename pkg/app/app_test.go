package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"canscope/pkg/app/config"
	"canscope/pkg/can"
	"canscope/pkg/simulator"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

func newTestApp(t *testing.T, frames int) (*App, []simulator.Generated) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.History = 8

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	g, err := simulator.NewGenerator(simulator.Options{Settings: cfg.CAN, Seed: 11})
	if err != nil {
		t.Fatalf("NewGenerator() err=%v", err)
	}
	rec, generated := g.Recording(frames)
	app.decode(context.Background(), rec)
	return app, generated
}

func get(t *testing.T, app *App, target string, v interface{}) int {
	t.Helper()
	resp, err := app.web.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("GET %s err=%v", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body err=%v", err)
	}
	if v != nil && resp.StatusCode == http.StatusOK {
		if err = json.Unmarshal(body, v); err != nil {
			t.Fatalf("GET %s: %v in %s", target, err, body)
		}
	}
	return resp.StatusCode
}

func TestFrames(t *testing.T) {
	app, generated := newTestApp(t, 12)

	var msgs []can.Message
	if code := get(t, app, "/frames", &msgs); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	// history keeps the last 8
	if len(msgs) != 8 {
		t.Fatalf("messages=%d want 8", len(msgs))
	}
	for i, m := range msgs {
		f := generated[4+i].Frame
		if m.ID != f.ID || m.Extended != f.Extended || !m.Valid {
			t.Fatalf("message %d=%+v want %+v", i, m, f)
		}
	}

	if code := get(t, app, "/frames?limit=3", &msgs); code != http.StatusOK || len(msgs) != 3 {
		t.Fatalf("status=%d messages=%d want 3", code, len(msgs))
	}
	if msgs[2].ID != generated[11].Frame.ID {
		t.Fatalf("last message=%+v want id %#x", msgs[2], generated[11].Frame.ID)
	}

	if code := get(t, app, "/frames?limit=x", nil); code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", code)
	}
}

func TestStats(t *testing.T) {
	app, _ := newTestApp(t, 12)

	var st can.Stats
	if code := get(t, app, "/stats", &st); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if st.Frames != 12 || st.Valid != 12 || len(st.Errors) != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestVersionAndHealth(t *testing.T) {
	app, _ := newTestApp(t, 1)

	var version map[string]string
	if code := get(t, app, "/version", &version); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if version["version"] != VERSION || version["about"] != Version() {
		t.Fatalf("version=%v", version)
	}

	var health struct {
		Version string
		Frames  uint64
	}
	if code := get(t, app, "/health", &health); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	if health.Version != VERSION || health.Frames != 1 {
		t.Fatalf("health=%+v", health)
	}
}

func TestDisabledWebservice(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices["stats"] = false
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if code := get(t, app, "/stats", nil); code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", code)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	if got := h.Last(0); len(got) != 0 {
		t.Fatalf("Last()=%v on empty history", got)
	}
	for id := uint32(1); id <= 5; id++ {
		h.Add(can.Message{ID: id, Valid: true})
	}

	got := h.Last(0)
	if len(got) != 3 || got[0].ID != 3 || got[2].ID != 5 {
		t.Fatalf("Last(0)=%v", got)
	}
	got = h.Last(2)
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 5 {
		t.Fatalf("Last(2)=%v", got)
	}
	if st := h.Stats(); st.Frames != 5 {
		t.Fatalf("Stats()=%+v", st)
	}
}

func TestVersion(t *testing.T) {
	if got := Version(); got != "canscope V1.0.0" {
		t.Fatalf("Version()=%q", got)
	}
}
