package history

import (
	"context"
	"errors"
	"testing"

	"github.com/neurlang/vocoder/trainer"
)

func stores(t *testing.T) map[string]Store {
	b, err := OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Store{"memory": NewMemory(), "badger": b}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(ctx, Key{"a"}); !errors.Is(err, ErrNotFound) {
				t.Errorf("missing key: %v", err)
			}
			for _, k := range []Key{{"a", "b", "2"}, {"a", "b", "1"}, {"a", "bc", "1"}, {"z"}} {
				if err := s.Set(ctx, k, []byte(k.String())); err != nil {
					t.Fatal(err)
				}
			}
			v, err := s.Get(ctx, Key{"a", "b", "1"})
			if err != nil || string(v) != "a:b:1" {
				t.Errorf("get %q, %v", v, err)
			}
			var got []string
			for e, err := range s.List(ctx, Key{"a", "b"}) {
				if err != nil {
					t.Fatal(err)
				}
				got = append(got, e.Key.String())
			}
			if len(got) != 2 || got[0] != "a:b:1" || got[1] != "a:b:2" {
				t.Errorf("list %v", got)
			}
			var all int
			for range s.List(ctx, nil) {
				all++
			}
			if all != 4 {
				t.Errorf("listed %d of 4 entries", all)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := NewRecorder(ctx, s)
			var cb trainer.Callback = r
			for epoch := 0; epoch < 12; epoch++ {
				if err := cb.OnEpochEnd(epoch, trainer.Logs{"loss": float64(12 - epoch)}); err != nil {
					t.Fatal(err)
				}
			}
			recs, err := Load(ctx, s, r.Run)
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != 12 {
				t.Fatalf("%d records", len(recs))
			}
			for i, rec := range recs {
				if rec.Epoch != i+1 || rec.Logs["loss"] != float64(12-i) || rec.Run != r.Run {
					t.Errorf("record %d: %+v", i, rec)
				}
			}
			if other, err := Load(ctx, s, "other"); err != nil || len(other) != 0 {
				t.Errorf("other run: %v, %v", other, err)
			}
		})
	}
}

func TestEpochKey(t *testing.T) {
	if k := EpochKey("r1", 7).String(); k != "run:r1:epoch:0007" {
		t.Errorf("key %q", k)
	}
}
