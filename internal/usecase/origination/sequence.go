package origination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lendcore-backend/internal/domain/lending"
)

// DayKey encodes t as YYMMDD (two-digit year, zero-padded month/day).
func DayKey(t time.Time) int64 {
	return int64(t.Year()%100)*10000 + int64(t.Month())*100 + int64(t.Day())
}

// CodeSequencer issues day-scoped application codes. The first code of
// a day is dayKey*10 + 1; subsequent codes increment by one. Uniqueness
// under concurrent callers is delegated to the sequence repository,
// which reserves the next code as a single atomic step.
type CodeSequencer struct {
	now func() time.Time
}

func NewCodeSequencer(now func() time.Time) *CodeSequencer {
	if now == nil {
		now = time.Now
	}
	return &CodeSequencer{now: now}
}

// Next reserves the next code using the repository bound to the
// caller's transaction. The day key is derived inside the call, so a
// request in flight across local midnight sees the new day's key.
func (s *CodeSequencer) Next(ctx context.Context, seqs lending.SequenceRepository) (int64, error) {
	code, err := seqs.Next(ctx, DayKey(s.now()))
	if err != nil {
		if errors.Is(err, lending.ErrConcurrencyConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: next application code: %v", lending.ErrStoreUnavailable, err)
	}
	return code, nil
}
