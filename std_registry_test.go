package metrics

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNames_InsertionOrder(t *testing.T) {
	r := NewStdRegistry()
	want := []string{"zeta", "alpha", "mid", "beta", "0"}
	for _, n := range want {
		if err := r.Insert(n, NewStdCounter()); err != nil {
			t.Fatalf("insert %q: %v", n, err)
		}
	}
	for round := 0; round < 3; round++ {
		got := r.Names()
		if len(got) != len(want) {
			t.Fatalf("unexpected names length: got %d want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("unexpected name at %d: got %q want %q", i, got[i], want[i])
			}
		}
	}
}

func TestNames_ReturnsCopy(t *testing.T) {
	r := NewStdRegistry()
	_ = r.Insert("a", NewStdCounter())
	names := r.Names()
	names[0] = "mutated"
	if got := r.Names()[0]; got != "a" {
		t.Fatalf("registry order mutated through returned slice: got %q", got)
	}
}

func TestInsert_Overwrites(t *testing.T) {
	r := NewStdRegistry()
	first := NewStdCounter()
	second := NewStdGauge()
	_ = r.Insert("a", first)
	_ = r.Insert("b", NewStdCounter())
	if err := r.Insert("a", second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := r.Get("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != Metric(second) {
		t.Fatalf("expected overwritten metric, got %T", m)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected overwrite to keep position, got %v", names)
	}
}

func TestGet_NotFound(t *testing.T) {
	r := NewStdRegistry()
	m, err := r.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil metric, got %T", m)
	}
}

func TestInsert_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		metric  Metric
		key     string
		wantErr error
	}{
		{name: "empty_name", key: "", metric: NewStdCounter(), wantErr: ErrEmptyName},
		{name: "nil_metric", key: "x", metric: nil, wantErr: ErrNilMetric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewStdRegistry()
			if err := r.Insert(tc.key, tc.metric); !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: got %v want %v", err, tc.wantErr)
			}
			if n := len(r.Names()); n != 0 {
				t.Fatalf("expected empty registry, got %d names", n)
			}
		})
	}
}

func TestTypedHelpers_KindMismatch(t *testing.T) {
	r := NewStdRegistry()
	_ = r.Insert("taken", NewStdGauge())

	if _, err := r.Counter("taken"); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch from Counter, got %v", err)
	}
	if _, err := r.Meter("taken"); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch from Meter, got %v", err)
	}
	if _, err := r.Histogram("taken", DefaultHistogramConfig); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch from Histogram, got %v", err)
	}
	if _, err := r.Gauge("taken"); err != nil {
		t.Fatalf("unexpected error from Gauge: %v", err)
	}
}

func TestGetOrInsert_PropagatesConstructorError(t *testing.T) {
	r := NewStdRegistry()
	_, err := r.Histogram("bad", HistogramConfig{MinValue: 1, MaxValue: 100, Precision: 9})
	if !errors.Is(err, ErrInvalidHistogramConfig) {
		t.Fatalf("expected ErrInvalidHistogramConfig, got %v", err)
	}
	if _, err := r.Get("bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected nothing stored after failed construction, got %v", err)
	}

	_, err = r.GetOrInsert("nil", func() (Metric, error) { return nil, nil })
	if !errors.Is(err, ErrNilMetric) {
		t.Fatalf("expected ErrNilMetric, got %v", err)
	}
}

func TestGetOrInsert_KeepsConcurrentInsert(t *testing.T) {
	r := NewStdRegistry()
	inserted := NewStdCounter()
	inserted.Add(42)

	// Insert lands after the re-check but before the constructed metric is stored
	got, err := r.GetOrInsert("hits", func() (Metric, error) {
		if err := r.Insert("hits", inserted, WithDescription("inserted")); err != nil {
			return nil, err
		}
		return NewStdCounter(), nil
	}, WithDescription("default"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Metric(inserted) {
		t.Fatalf("unexpected metric: got %p want the inserted %p", got, inserted)
	}

	m, cfg, err := r.GetWithMeta("hits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != Metric(inserted) {
		t.Fatalf("inserted metric was replaced")
	}
	if cfg.Description != "inserted" {
		t.Fatalf("unexpected description: got %q want %q", cfg.Description, "inserted")
	}
	if n := len(r.Names()); n != 1 {
		t.Fatalf("unexpected names length: got %d want 1", n)
	}
}

func TestConcurrentInsertGetNames(t *testing.T) {
	r := NewStdRegistry()
	const (
		writers = 8
		perG    = 200
	)
	var wg sync.WaitGroup
	wg.Add(writers * 2)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				c := NewStdCounter()
				c.Add(int64(i))
				if err := r.Insert(fmt.Sprintf("w%d_%d", w, i), c); err != nil {
					t.Errorf("insert: %v", err)
					return
				}
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				for _, n := range r.Names() {
					m, err := r.Get(n)
					if err != nil {
						t.Errorf("listed name %q not found: %v", n, err)
						return
					}
					if _, ok := m.Export().(CounterSnapshot); !ok {
						t.Errorf("unexpected snapshot for %q", n)
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	if got := len(r.Names()); got != writers*perG {
		t.Fatalf("unexpected number of names: got %d want %d", got, writers*perG)
	}
	if got := r.Len(); got != writers*perG {
		t.Fatalf("unexpected Len: got %d want %d", got, writers*perG)
	}
}
