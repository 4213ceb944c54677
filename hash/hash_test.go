package hash

import (
	"testing"
)

// performance benchmark
func BenchmarkHash(b *testing.B) {
	n := uint32(0)
	s := uint32(0)
	for i := 0; i < b.N; i++ {
		n = Hash(n, s, 1<<20)
		s++
	}
}

// loop length test
func TestHash(t *testing.T) {
	const bound1 = 20
	const bound2 = 10000
	var count uint64
	for max := uint32(1); max <= 1<<bound1; max <<= 1 {
		var visited = make([]bool, max)
		var current uint32
		for s := uint32(0); s < bound2; s++ {
			current = Hash(current, s, max)
			if current == 0 || visited[current] {
				visited = make([]bool, max)
				continue
			} else {
				visited[current] = true
				count++
			}
		}
	}
	if count == 0 {
		t.Errorf("hash never produced a fresh value")
	}
}

func TestFeatures(t *testing.T) {
	const max = 1009
	a := Features([]uint32{1, 2, 3}, 7, max)
	if a >= max {
		t.Fatalf("Features out of range: %d", a)
	}
	if b := Features([]uint32{1, 2, 3}, 7, max); a != b {
		t.Errorf("Features not deterministic: %d != %d", a, b)
	}
	var seen = make(map[uint32]struct{})
	for i := uint32(0); i < 64; i++ {
		seen[Features([]uint32{i, i + 1, i + 2}, 7, max)] = struct{}{}
	}
	if len(seen) < 32 {
		t.Errorf("Features collides too much: %d distinct buckets of 64", len(seen))
	}
	if Features(nil, 7, 0) != 0 {
		t.Errorf("Features with max 0 must be 0")
	}
}

// sanity check fuzz
func FuzzHash(f *testing.F) {
	f.Add(uint32(0), uint32(0), uint32(0))
	f.Fuzz(func(t *testing.T, n, s, max uint32) {
		out := Hash(n, s, max)
		if max == 0 && out != 0 {
			t.Errorf("Hash(%d, %d, 0) == %d (max=0 should be 0)", n, s, out)
		}
		if max > 1 && out >= max {
			t.Errorf("Hash(%d, %d, %d) == %d (output bigger or equal than max)", n, s, max, out)
		}
	})
}
