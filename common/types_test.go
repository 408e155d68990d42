package common

import "testing"

func TestParseHexRGB(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
	}{
		{"#ffffff", White},
		{"000000", RGB{}},
		{"#f00", RGB{R: 1}},
		{"0x00ff00", RGB{G: 1}},
		{"  #0000FF ", RGB{B: 1}},
	}
	for _, tt := range tests {
		got, err := ParseHexRGB(tt.in)
		if err != nil {
			t.Fatalf("ParseHexRGB(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseHexRGB(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseHexRGB_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#gggggg", "#1234567"} {
		if _, err := ParseHexRGB(in); err == nil {
			t.Errorf("ParseHexRGB(%q) expected error", in)
		}
	}
}

func TestRGBString(t *testing.T) {
	c, err := ParseHexRGB("#dddddd")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "#dddddd" {
		t.Errorf("String() = %q, want %q", got, "#dddddd")
	}
	if got := c.RGBA8(); got != [4]uint8{0xdd, 0xdd, 0xdd, 255} {
		t.Errorf("RGBA8() = %v", got)
	}
}

func TestClamp01(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	tests := []struct{ in, want float32 }{
		{-1, 0}, {0, 0}, {0.25, 0.25}, {1, 1}, {3, 1}, {nan, 0},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Errorf("Coalesce() = %d, want 3", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce() = %q, want empty", got)
	}
}
