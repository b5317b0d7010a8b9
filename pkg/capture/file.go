package capture

import (
	"fmt"
	"os"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Load reads a recording from a YAML capture file.
func Load(name string) (*Recording, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	r := &Recording{}
	if err = yaml.NewDecoder(file).Decode(r); err != nil {
		return nil, fmt.Errorf("error decoding capture file %q: %w", name, err)
	}
	if err = r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture file %q: %w", name, err)
	}

	debug.DebugLog.Printf("capture %q: %d edges, %d samples at %d Hz", name, len(r.Edges), r.Length, r.SampleRate)
	r.Rewind()
	return r, nil
}

// Save writes the recording to a YAML capture file.
func Save(name string, r *Recording) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if e := file.Close(); err == nil {
			err = e
		}
	}()

	enc := yaml.NewEncoder(file)
	if err = enc.Encode(r); err != nil {
		return fmt.Errorf("error encoding capture file %q: %w", name, err)
	}
	return enc.Close()
}
