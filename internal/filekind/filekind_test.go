package filekind_test

import (
	"testing"

	"bidsprep/internal/filekind"
)

func TestKITClassifier(t *testing.T) {
	cases := []struct {
		path string
		want filekind.Kind
	}{
		{"/data/2630_RS_B2.con", filekind.Recording},
		{"/data/2630_RS_B2.CON", filekind.Recording},
		{"/data/2630_preB2.mrk", filekind.Marker},
		{"/data/2630.elp", filekind.Digitizer},
		{"/data/2630.hsp", filekind.HeadShape},
		{"/data/notes.txt", filekind.Unclassified},
		{"/data/README", filekind.Unclassified},
		{"/data/archive.con.bak", filekind.Unclassified},
	}
	for _, tc := range cases {
		if got := filekind.KIT(tc.path); got != tc.want {
			t.Errorf("KIT(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestParseRoundTripsRoles(t *testing.T) {
	for _, kind := range filekind.Roles {
		if got := filekind.Parse(kind.String()); got != kind {
			t.Fatalf("Parse(%q) = %s", kind.String(), got)
		}
		if filekind.KIT("x"+kind.Extension()) != kind {
			t.Fatalf("extension %q does not classify as %s", kind.Extension(), kind)
		}
	}
	if filekind.Parse("mri") != filekind.Unclassified {
		t.Fatal("expected unknown role to be unclassified")
	}
}
