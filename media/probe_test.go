package media

import "testing"

func TestParseFrameRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, tc := range cases {
		if got := parseFrameRate(tc.in); got != tc.want {
			t.Errorf("parseFrameRate(%q) = %.3f, want %.3f", tc.in, got, tc.want)
		}
	}

	// NTSC fractional rate
	if got := parseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Errorf("parseFrameRate(30000/1001) = %.3f, want ~29.97", got)
	}
}
