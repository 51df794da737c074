// Package header is the boundary to the neuroimaging file parser.
//
// bidsprep never decodes acquisition data itself. A Reader returns the channel
// and metadata dictionaries the validation and assembly stages need; the
// default SidecarReader takes them from a TOML file stored next to the
// recording (for example 2630_RS_B2.con.toml).
package header

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Metadata keys populated by readers.
const (
	KeyInstitution     = "institution_name"
	KeySerialNumber    = "serial_number"
	KeyMeasurementDate = "measurement_date"
	KeyModel           = "model_name"
)

// Trigger describes one stimulus channel and its event label.
type Trigger struct {
	Channel     int    `toml:"channel" json:"channel"`
	Description string `toml:"description" json:"description"`
}

// Info is the parsed header of a recording.
type Info struct {
	Metadata    map[string]string `toml:"metadata"`
	Channels    []string          `toml:"channels"`
	Triggers    []Trigger         `toml:"triggers"`
	BadChannels []string          `toml:"bad_channels"`
}

// Get returns the metadata value for key, or "" when absent.
func (i Info) Get(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

// TriggerChannels returns the trigger channel numbers in declaration order.
func (i Info) TriggerChannels() []int {
	out := make([]int, 0, len(i.Triggers))
	for _, trig := range i.Triggers {
		out = append(out, trig.Channel)
	}
	return out
}

// Clone returns a deep copy so records never share mutable header state.
func (i Info) Clone() Info {
	out := Info{
		Channels:    append([]string(nil), i.Channels...),
		Triggers:    append([]Trigger(nil), i.Triggers...),
		BadChannels: append([]string(nil), i.BadChannels...),
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Reader parses the header of a recording file.
type Reader interface {
	Read(ctx context.Context, path string) (Info, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, path string) (Info, error)

func (f ReaderFunc) Read(ctx context.Context, path string) (Info, error) { return f(ctx, path) }

// SidecarReader reads <path>.toml. A missing sidecar yields an empty Info.
type SidecarReader struct{}

func (SidecarReader) Read(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("stat recording: %w", err)
	}
	data, err := os.ReadFile(path + ".toml")
	if errors.Is(err, fs.ErrNotExist) {
		return Info{Metadata: map[string]string{}}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("read header sidecar: %w", err)
	}
	var info Info
	if err := toml.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse header sidecar %s: %w", path+".toml", err)
	}
	if info.Metadata == nil {
		info.Metadata = map[string]string{}
	}
	for k, v := range info.Metadata {
		info.Metadata[k] = strings.TrimSpace(v)
	}
	return info, nil
}
