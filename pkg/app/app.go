package app

import (
	"context"
	"net/url"
	"sync"
	"time"

	"canscope/pkg/app/config"
	"canscope/pkg/can"
	"canscope/pkg/capture"
	"canscope/pkg/mqtt"
	"canscope/pkg/port"
	"canscope/pkg/raspberry"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// streamTail is the number of bit periods reported after the last edge when
// the edge source ends, enough to complete an intermission.
const streamTail = 20

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// source delivers the edges of the bus line
	source raspberry.Source
	// stream is the sampled channel built from the source edges
	stream *capture.Stream

	// decoder turns the bus bits into fields; the assembler sink
	// groups them into messages
	decoder *can.Decoder

	// history keeps the recent messages and the statistics
	history *History

	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return nil, err
	}

	app := &App{
		config:    config,
		urlParsed: u,

		web:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:    mqtt.New(config.MQTT),
		history: NewHistory(config.History),

		started: time.Now(),
		done:    make(chan struct{}),
	}

	if app.decoder, err = can.NewDecoder(config.CAN, &can.Assembler{OnMessage: app.onMessage}); err != nil {
		debug.ErrorLog.Printf("invalid decoder settings: %v", err)
		return nil, err
	}

	// initDefaultRoutes should be always called last because it may access things like app.history
	app.initDefaultRoutes()
	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go app.mqtt.Service()
	go app.runWebServer()
	go func() {
		defer close(app.done)
		app.decode(ctx, app.stream)
	}()

	return nil
}

// init opens the bus line and connects the mqtt broker.
func (app *App) init() (err error) {
	c := app.config.Capture
	if app.source, err = raspberry.Open(c.Driver, c.Chip, c.Gpio, c.Terminator); err != nil {
		debug.ErrorLog.Printf("can't open gpio %d (%s): %v", c.Gpio, c.Driver, err)
		return err
	}

	level, err := app.source.Level()
	if err != nil {
		debug.ErrorLog.Printf("can't read gpio %d: %v", c.Gpio, err)
		return err
	}
	if level == app.config.CAN.Inverted {
		debug.InfoLog.Printf("bus line is dominant at start")
	}

	tail := streamTail * app.config.CAN.SamplesPerBit()
	app.stream = capture.NewStream(app.source.Events(), app.config.CAN.SampleRate, level, tail)

	if err = app.mqtt.Connect(); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	return nil
}

// decode runs the decoder until the channel ends or ctx is cancelled.
func (app *App) decode(ctx context.Context, ch port.Channel) {
	debug.InfoLog.Printf("decoding at %d bit/s, %d Hz", app.config.CAN.BitRate, app.config.CAN.SampleRate)

	if err := app.decoder.Decode(ctx, ch); err != nil {
		debug.InfoLog.Printf("decoder stopped: %v", err)
		return
	}
	debug.InfoLog.Print("bus line closed")
}

// onMessage receives every assembled message.
func (app *App) onMessage(m can.Message) {
	debug.DebugLog.Printf("%s", m)
	app.history.Add(m)

	select {
	case app.mqtt.C <- m:
	default:
		debug.ErrorLog.Printf("mqtt queue full, message %s dropped", m)
	}
}

// Close stops decoding and releases the bus line, the broker and the web server.
func (app *App) Close() error {
	app.once.Do(func() {
		if app.cancel != nil {
			app.cancel()
			_ = app.stream.Close()
			<-app.done
		}
		if app.source != nil {
			if err := app.source.Close(); err != nil {
				debug.ErrorLog.Printf("closing gpio: %v", err)
			}
		}

		close(app.mqtt.C)
		_ = app.mqtt.Disconnect()
		_ = app.web.Shutdown()
	})
	return nil
}
