package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"canscope/pkg/app"
	"canscope/pkg/app/config"
	"canscope/pkg/can"
	"canscope/pkg/capture"
	"canscope/pkg/export"
	"canscope/pkg/simulator"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/canscope/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "CAN 2.0B bit level decoder",
		Version: app.VERSION,
		Description: "Decode CAN 2.0B frames from the raw bus level: bit extraction with hard" +
			"\n synchronization, de-stuffing, CRC-15 check and error recovery." +
			"\n Frames are read live from a GPIO line or from a capture file.",
		UsageText: "canscope [--config <file>] [--log standard|debug|trace] command [options]" +
			"\n\nEXAMPLE:" +
			"\n\tdecode a capture file and write a PDF report" +
			"\n\t\tcanscope decode --input bus.yaml --bitrate 500000 --pdf bus.pdf" +
			"\n\tgenerate 100 random frames" +
			"\n\t\tcanscope simulate --output bus.yaml --frames 100 --seed 7",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Usage: "load configuration from `FILE` (run: " + defaultConfigFile + ")"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
		},
		Commands: []*cli.Command{
			runCommand(cfg),
			decodeCommand(cfg),
			simulateCommand(cfg),
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}

// setup loads the configuration and opens the debug output. The returned
// function closes the debug output.
func setup(cfg *config.Config) (func(), error) {
	if err := cfg.LoadConfig(); err != nil {
		return nil, err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	return func() {
		debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
		if cfg.Debug.File != os.Stderr && cfg.Debug.File != os.Stdout {
			_ = cfg.Debug.File.Close()
		}
	}, nil
}

func runCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "decode the bus line on a GPIO and serve the frames over http and mqtt",
		Action: func(ctx *cli.Context) error {
			if cfg.Flag.ConfigFile == "" {
				cfg.Flag.ConfigFile = defaultConfigFile
			}
			closeDebug, err := setup(cfg)
			if err != nil {
				return err
			}
			defer closeDebug()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for am os.Interrupt signal (CTRL C)
			sig := <-quit
			debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			return nil
		},
	}
}

func decodeCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode a capture file",
		UsageText: "canscope decode --input FILE [--bitrate N] [--inverted] [--text] [--markers] [--csv FILE] [--pdf FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "capture `FILE`"},
			&cli.UintFlag{Name: "bitrate", Aliases: []string{"b"}, Usage: "bit rate in bit/s (default: config can.bitrate)"},
			&cli.BoolFlag{Name: "inverted", Usage: "high level is dominant"},
			&cli.BoolFlag{Name: "text", Usage: "list every field instead of one line per frame"},
			&cli.BoolFlag{Name: "markers", Usage: "list the classification of every bit"},
			&cli.StringFlag{Name: "csv", Usage: "export the fields to `FILE`"},
			&cli.StringFlag{Name: "pdf", Usage: "write a decode report to `FILE`"},
		},
		Action: func(ctx *cli.Context) error {
			closeDebug, err := setup(cfg)
			if err != nil {
				return err
			}
			defer closeDebug()

			rec, err := capture.Load(ctx.String("input"))
			if err != nil {
				return err
			}

			settings := cfg.CAN
			settings.SampleRate = rec.SampleRate
			if ctx.IsSet("bitrate") {
				settings.BitRate = uint32(ctx.Uint("bitrate"))
			}
			if ctx.IsSet("inverted") {
				settings.Inverted = ctx.Bool("inverted")
			}

			var msgs []can.Message
			res := &can.Results{NoMarkers: !ctx.Bool("markers")}
			asm := &can.Assembler{OnMessage: func(m can.Message) { msgs = append(msgs, m) }}
			d, err := can.NewDecoder(settings, can.Sinks{res, asm})
			if err != nil {
				return err
			}

			sctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err = d.Decode(sctx, rec); err != nil {
				return err
			}

			w := bufio.NewWriter(os.Stdout)
			printResults(w, res, msgs, settings, ctx.Bool("text"))
			if err = w.Flush(); err != nil {
				return err
			}

			if name := ctx.String("csv"); name != "" {
				if err = writeCSV(name, res.Fields, settings.SampleRate); err != nil {
					return err
				}
				debug.InfoLog.Printf("csv export written to %s", name)
			}
			if name := ctx.String("pdf"); name != "" {
				rep := export.Report{Source: ctx.String("input"), Settings: settings, Messages: msgs, Errors: res.Errors()}
				if err = export.SavePDF(rep, name); err != nil {
					return err
				}
				debug.InfoLog.Printf("pdf report written to %s", name)
			}
			return nil
		},
	}
}

func printResults(w io.Writer, res *can.Results, msgs []can.Message, s can.Settings, text bool) {
	if text {
		for _, f := range res.Fields {
			fmt.Fprint(w, export.Text(f, false, s))
		}
	} else {
		for _, m := range msgs {
			fmt.Fprintf(w, "%12.6f  %s\n", float64(m.Start)/float64(s.SampleRate), m)
		}
	}
	for _, m := range res.Markers {
		fmt.Fprintf(w, "%d %s\n", m.Sample, m.Type)
	}
	fmt.Fprintf(w, "%d frames, %d errors\n", len(msgs), len(res.Errors()))
}

func writeCSV(name string, fields []can.Field, sampleRate uint32) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if e := file.Close(); err == nil {
			err = e
		}
	}()
	return export.WriteCSV(file, fields, sampleRate)
}

func simulateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "write a capture file with pseudo-random frames",
		UsageText: "canscope simulate --output FILE [--frames N] [--seed N] [--types T] [--ack A] [--invalid]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "capture `FILE`"},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Value: 100, Usage: "number of frames"},
			&cli.UintFlag{Name: "seed", Value: 0, Usage: "seed of the pseudo-random sequence"},
			&cli.StringFlag{Name: "types", Value: "all", Usage: "frame `TYPES` (all|std-data|ext-data|std-remote|ext-remote)"},
			&cli.StringFlag{Name: "ack", Value: "dominant", Usage: "ACK slot `LEVEL` (dominant|recessive|random)"},
			&cli.BoolFlag{Name: "invalid", Usage: "toggle one random bit of the stuffed region of every frame"},
			&cli.UintFlag{Name: "bitrate", Aliases: []string{"b"}, Usage: "bit rate in bit/s (default: config can.bitrate)"},
			&cli.UintFlag{Name: "samplerate", Aliases: []string{"s"}, Usage: "sample rate in Hz (default: config can.samplerate)"},
			&cli.BoolFlag{Name: "inverted", Usage: "high level is dominant"},
		},
		Action: func(ctx *cli.Context) error {
			closeDebug, err := setup(cfg)
			if err != nil {
				return err
			}
			defer closeDebug()

			opts := simulator.Options{Settings: cfg.CAN, Seed: uint32(ctx.Uint("seed"))}
			if ctx.IsSet("bitrate") {
				opts.Settings.BitRate = uint32(ctx.Uint("bitrate"))
			}
			if ctx.IsSet("samplerate") {
				opts.Settings.SampleRate = uint32(ctx.Uint("samplerate"))
			}
			if ctx.IsSet("inverted") {
				opts.Settings.Inverted = ctx.Bool("inverted")
			}
			if ctx.Bool("invalid") {
				opts.Validity = simulator.OneRandomErrorBit
			}
			if opts.Types, err = simulator.ParseFrameTypes(ctx.String("types")); err != nil {
				return err
			}
			if opts.Ack, err = simulator.ParseAckMode(ctx.String("ack")); err != nil {
				return err
			}
			if ctx.Int("frames") < 1 {
				return fmt.Errorf("%w: %d frames", simulator.ErrInvalidParam, ctx.Int("frames"))
			}

			g, err := simulator.NewGenerator(opts)
			if err != nil {
				return err
			}
			rec, frames := g.Recording(ctx.Int("frames"))
			for _, f := range frames {
				debug.DebugLog.Printf("sample %d: %+v toggled %d", f.Start, f.Frame, f.Toggled)
			}
			if err = capture.Save(ctx.String("output"), rec); err != nil {
				return err
			}

			fmt.Printf("%d frames, %d edges, %d samples written to %s\n",
				len(frames), len(rec.Edges), rec.Length, ctx.String("output"))
			return nil
		},
	}
}
