package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"canscope/pkg/can"

	"gopkg.in/natefinch/lumberjack.v2"
)

func TestValidate_Defaults(t *testing.T) {
	if err := NewConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"bit rate", func(c *Config) { c.CAN.BitRate = 2000000 }, can.ErrInvalidBitRate},
		{"sample rate", func(c *Config) { c.CAN.SampleRate = 500000 }, can.ErrSampleRateTooLow},
		{"driver", func(c *Config) { c.Capture.Driver = "sysfs" }, ErrInvalidParam},
		{"terminator", func(c *Config) { c.Capture.Terminator = "floating" }, ErrInvalidParam},
		{"gpio", func(c *Config) { c.Capture.Gpio = -1 }, ErrInvalidParam},
		{"history", func(c *Config) { c.History = 0 }, ErrInvalidParam},
		{"qos", func(c *Config) { c.MQTT.Qos = 3 }, ErrInvalidParam},
		{"debug flag", func(c *Config) { c.Debug.FlagString = "verbose" }, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.modify(c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() err=%v want %v", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "canscope.yaml")
	data := `
can:
  bitrate: 500000
  samplerate: 4000000
  inverted: true
capture:
  driver: gpiomem
  gpio: 22
  terminator: pullup
history: 50
mqtt:
  connection: tcp://broker:1883
  topic: car/can0
  qos: 1
debug:
  file: ` + filepath.Join(dir, "canscope.log") + `
  flag: standard
  maxsize: 1
`
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	c.Flag.ConfigFile = name
	c.Flag.Debug = "trace"
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() err=%v", err)
	}

	want := can.Settings{BitRate: 500000, SampleRate: 4000000, Inverted: true}
	if c.CAN != want {
		t.Errorf("can=%+v want %+v", c.CAN, want)
	}
	if c.Capture.Driver != "gpiomem" || c.Capture.Gpio != 22 || c.Capture.Chip != "gpiochip0" {
		t.Errorf("capture=%+v", c.Capture)
	}
	if c.History != 50 || c.MQTT.Topic != "car/can0" || c.MQTT.Qos != 1 {
		t.Errorf("config=%+v", c)
	}
	if !c.Webserver.Webservices["frames"] {
		t.Errorf("default webservices lost: %v", c.Webserver.Webservices)
	}
	if c.Debug.FlagString != "trace" {
		t.Errorf("debug flag=%q, flag override ignored", c.Debug.FlagString)
	}
	l, ok := c.Debug.File.(*lumberjack.Logger)
	if !ok || l.MaxSize != 1 || l.MaxBackups != 5 {
		t.Errorf("debug file=%#v", c.Debug.File)
	}
	_ = c.Debug.File.Close()
}

func TestLoadConfig_MissingFile(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	if err := c.LoadConfig(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig() err=%v", err)
	}
}

func TestLoadConfig_WithoutFile(t *testing.T) {
	c := NewConfig()
	if err := c.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig() err=%v", err)
	}
	if c.Debug.File != os.Stderr {
		t.Fatalf("debug file=%v want stderr", c.Debug.File)
	}
}
