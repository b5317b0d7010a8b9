package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"canscope/pkg/can"
	"canscope/pkg/mqtt"
	"canscope/pkg/raspberry"

	"github.com/womat/debug"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

var ErrInvalidParam = errors.New("invalid parameter")

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag      FlagConfig      `yaml:"-"`
	CAN       can.Settings    `yaml:"can"`
	Capture   CaptureConfig   `yaml:"capture"`
	History   int             `yaml:"history"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      mqtt.Config     `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	ConfigFile string
	Debug      string
}

// CaptureConfig defines the gpio line the bus is sampled on
type CaptureConfig struct {
	Driver     string `yaml:"driver"`
	Chip       string `yaml:"chip"`
	Gpio       int    `yaml:"gpio"`
	Terminator string `yaml:"terminator"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
	// MaxSize is the size of a log file in megabytes before it is rotated.
	MaxSize    int `yaml:"maxsize"`
	MaxBackups int `yaml:"maxbackups"`
	// MaxAge is the number of days rotated files are kept.
	MaxAge int `yaml:"maxage"`
}

func NewConfig() *Config {
	return &Config{
		CAN: can.Settings{
			BitRate:    can.DefaultBitRate,
			SampleRate: 1000000,
		},
		Capture: CaptureConfig{
			Driver:     raspberry.DriverGpiod,
			Chip:       "gpiochip0",
			Gpio:       17,
			Terminator: "none",
		},
		History: 1000,
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"frames":  true,
				"stats":   true,
			},
		},
		MQTT: mqtt.Config{
			Connection: "tcp://127.0.0.1:1883",
			Topic:      "canscope",
		},
	}
}

// LoadConfig reads the configuration file, if one is given, applies the flag
// overrides, validates the result and opens the debug output.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := c.CAN.Validate(); err != nil {
		return fmt.Errorf("can: %w", err)
	}

	switch c.Capture.Driver {
	case raspberry.DriverGpiod, raspberry.DriverGpiomem:
	default:
		return fmt.Errorf("%w: capture driver %q", ErrInvalidParam, c.Capture.Driver)
	}
	switch c.Capture.Terminator {
	case "pullup", "pulldown", "none":
	default:
		return fmt.Errorf("%w: capture terminator %q", ErrInvalidParam, c.Capture.Terminator)
	}
	if c.Capture.Gpio < 0 {
		return fmt.Errorf("%w: capture gpio %d", ErrInvalidParam, c.Capture.Gpio)
	}

	if c.History < 1 {
		return fmt.Errorf("%w: history %d", ErrInvalidParam, c.History)
	}
	if _, err := url.Parse(c.Webserver.URL); err != nil {
		return fmt.Errorf("%w: webserver url: %v", ErrInvalidParam, err)
	}
	if c.MQTT.Qos > 2 {
		return fmt.Errorf("%w: mqtt qos %d", ErrInvalidParam, c.MQTT.Qos)
	}

	if _, ok := debugFlag(c.Debug.FlagString); !ok {
		return fmt.Errorf("%w: debug flag %q", ErrInvalidParam, c.Debug.FlagString)
	}
	return nil
}

func debugFlag(s string) (int, bool) {
	switch s {
	case "trace", "full":
		return debug.Full, true
	case "debug":
		return debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug, true
	case "standard":
		return debug.Standard, true
	default:
		return 0, false
	}
}

func (c *Config) setDebugConfig() error {
	c.Debug.Flag, _ = debugFlag(c.Debug.FlagString)

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		c.Debug.File = &lumberjack.Logger{
			Filename:   c.Debug.FileString,
			MaxSize:    c.Debug.MaxSize,
			MaxBackups: c.Debug.MaxBackups,
			MaxAge:     c.Debug.MaxAge,
		}
	}

	return nil
}
