package origination

import (
	"context"
	"testing"
	"time"

	"lendcore-backend/internal/domain/uow"
	"lendcore-backend/internal/testutil/memstore"
)

func TestDayKey(t *testing.T) {
	cases := []struct {
		t    time.Time
		want int64
	}{
		{time.Date(2021, 6, 30, 12, 0, 0, 0, time.UTC), 210630},
		{time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 260102},
		{time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC), 991231},
	}
	for _, tc := range cases {
		if got := DayKey(tc.t); got != tc.want {
			t.Fatalf("DayKey(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
}

func TestSequencer_FirstCodeAndIncrement(t *testing.T) {
	store := memstore.New()
	clock := time.Date(2021, 6, 30, 10, 0, 0, 0, time.UTC)
	seq := NewCodeSequencer(func() time.Time { return clock })
	ctx := context.Background()

	var codes []int64
	err := store.WithinTx(ctx, func(r uow.Repos) error {
		for i := 0; i < 3; i++ {
			c, err := seq.Next(ctx, r.Sequences)
			if err != nil {
				return err
			}
			codes = append(codes, c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := []int64{2106301, 2106302, 2106303}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}

func TestSequencer_DayRollover(t *testing.T) {
	store := memstore.New()
	clock := time.Date(2021, 6, 30, 23, 59, 59, 0, time.UTC)
	seq := NewCodeSequencer(func() time.Time { return clock })
	ctx := context.Background()

	issue := func() int64 {
		var code int64
		if err := store.WithinTx(ctx, func(r uow.Repos) error {
			var err error
			code, err = seq.Next(ctx, r.Sequences)
			return err
		}); err != nil {
			t.Fatalf("Next: %v", err)
		}
		return code
	}

	if got := issue(); got != 2106301 {
		t.Fatalf("before midnight: got %d", got)
	}

	// midnight passes while the service keeps running
	clock = time.Date(2021, 7, 1, 0, 0, 1, 0, time.UTC)
	if got := issue(); got != 2107011 {
		t.Fatalf("after midnight: got %d, want fresh day key", got)
	}
}
