package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of the decoder process.
// output example:
//  {"NumGoroutines":11,"NumCPU":4,"HeapAllocatedBytes":3322560,"HeapAllocatedMB":3,
//   "SysMemoryBytes":36029031,"SysMemoryMB":34,"Version":"1.0.0+20261001","ProgLang":"go1.18",
//   "Uptime":"2h0m0s","Frames":1234,"Errors":2}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys

		stats := app.history.Stats()

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			Uptime             string
			Frames             uint64
			Errors             uint64
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			Uptime:             time.Since(app.started).Round(time.Second).String(),
			Frames:             stats.Frames,
			Errors:             stats.Frames - stats.Valid,
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
