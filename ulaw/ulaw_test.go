package ulaw

import "testing"

func TestRoundTrip(t *testing.T) {
	for u := 0; u < 256; u++ {
		if got := Lin2Ulaw(Ulaw2Lin(uint8(u))); got != uint8(u) {
			t.Errorf("Lin2Ulaw(Ulaw2Lin(%d)) == %d", u, got)
		}
	}
}

func TestKnownValues(t *testing.T) {
	var tests = []struct {
		lin  float64
		ulaw uint8
	}{
		{0, 128},
		{32767, 255},
		{-32768, 0},
		{1e9, 255},
		{-1e9, 0},
	}
	for _, tc := range tests {
		if got := Lin2Ulaw(tc.lin); got != tc.ulaw {
			t.Errorf("Lin2Ulaw(%v) == %d, want %d", tc.lin, got, tc.ulaw)
		}
	}
	if Ulaw2Lin(128) != 0 {
		t.Errorf("Ulaw2Lin(128) == %v, want 0", Ulaw2Lin(128))
	}
}

func TestMonotonic(t *testing.T) {
	prev := Ulaw2Lin(0)
	for u := 1; u < 256; u++ {
		cur := Ulaw2Lin(uint8(u))
		if cur <= prev {
			t.Fatalf("Ulaw2Lin not increasing at %d: %v <= %v", u, cur, prev)
		}
		prev = cur
	}
}

func TestSlices(t *testing.T) {
	in := []int16{-32768, -100, 0, 100, 32767}
	u := Lin2UlawSlice(in)
	lin := Ulaw2LinSlice(u)
	if len(lin) != len(in) {
		t.Fatalf("length %d != %d", len(lin), len(in))
	}
	for i := range in {
		if (in[i] < 0) != (lin[i] < 0) {
			t.Errorf("sign flipped at %d: %d -> %v", i, in[i], lin[i])
		}
	}
}

func FuzzLin2Ulaw(f *testing.F) {
	f.Add(int16(0))
	f.Add(int16(-1))
	f.Fuzz(func(t *testing.T, x int16) {
		u := Lin2Ulaw(float64(x))
		back := Ulaw2Lin(u)
		if x > 0 && back < 0 || x < 0 && back > 0 {
			t.Errorf("Lin2Ulaw(%d) == %d expands to %v with flipped sign", x, u, back)
		}
	})
}
