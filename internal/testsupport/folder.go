package testsupport

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// Folder describes a KIT acquisition folder to lay out on disk.
type Folder struct {
	Recordings []string
	Markers    []string
	Digitizers []string
	HeadShapes []string
	// Triggers maps a recording name to its trigger channels. Recordings
	// listed here get a header sidecar.
	Triggers map[string][]int
	Serial   string
}

// StandardFolder is one recording, one marker, one digitizer and one head
// shape file.
func StandardFolder() Folder {
	return Folder{
		Recordings: []string{"2630_RS_B2.con"},
		Markers:    []string{"2630_RS_B2_ini.mrk"},
		Digitizers: []string{"2630_RS_B2.elp"},
		HeadShapes: []string{"2630_RS_B2.hsp"},
	}
}

// WriteFolder creates dir and every file named by spec, returning dir.
func WriteFolder(t testing.TB, dir string, spec Folder) string {
	t.Helper()

	groups := [][]string{spec.Recordings, spec.Markers, spec.Digitizers, spec.HeadShapes}
	for _, names := range groups {
		for _, name := range names {
			WriteFile(t, filepath.Join(dir, name), 16)
		}
	}
	for name, channels := range spec.Triggers {
		WriteText(t, filepath.Join(dir, name+".toml"), sidecar(channels, spec.Serial))
	}
	return dir
}

func sidecar(channels []int, serial string) string {
	var b strings.Builder
	b.WriteString("channels = [\"MEG 001\", \"MEG 002\"]\n")
	b.WriteString("bad_channels = [\"MEG 002\"]\n\n")
	b.WriteString("[metadata]\n")
	b.WriteString("institution_name = \"Sidecar Lab\"\n")
	if serial != "" {
		fmt.Fprintf(&b, "serial_number = %q\n", serial)
	}
	for _, ch := range channels {
		fmt.Fprintf(&b, "\n[[triggers]]\nchannel = %d\ndescription = \"event %d\"\n", ch, ch)
	}
	return b.String()
}
