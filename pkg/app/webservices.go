package app

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleFrames returns the recent messages, oldest first.
// The optional query parameter limit restricts the number of messages.
func (app *App) HandleFrames() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request frames")

		limit := 0
		if s := ctx.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				ctx.Status(http.StatusBadRequest)
				return ctx.JSON(fiber.Map{"error": "invalid limit " + strconv.Quote(s)})
			}
			limit = n
		}

		return ctx.JSON(app.history.Last(limit))
	}
}

// HandleStats returns the message counters.
func (app *App) HandleStats() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request stats")

		return ctx.JSON(app.history.Stats())
	}
}
