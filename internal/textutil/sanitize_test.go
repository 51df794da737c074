package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"  2630_RS_PROJ01 ": "2630_RS_PROJ01",
		"a/b:c":             "a-b-c",
		"what?<>|":          "what",
		"":                  "",
	}
	for in, want := range tests {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := map[string]string{
		"2630":       "2630",
		"sub_01-a":   "sub01a",
		" Rest ":     "Rest",
		"Müller":     "Mller",
		"---":        "unknown",
		"":           "unknown",
		"resting st": "restingst",
	}
	for in, want := range tests {
		if got := SanitizeLabel(in); got != want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsLabel(t *testing.T) {
	if !IsLabel("rest01") {
		t.Fatal("rest01 is a label")
	}
	for _, v := range []string{"", "rest_01", "unknown!"} {
		if IsLabel(v) {
			t.Errorf("IsLabel(%q) = true", v)
		}
	}
}
