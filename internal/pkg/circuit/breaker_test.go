package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	b := New("test", 2, time.Minute)
	b.SetNow(func() time.Time { return now })
	boom := errors.New("boom")

	assert.ErrorIs(t, b.Do(func() error { return boom }, nil), boom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(func() error { return boom }, nil), boom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	assert.ErrorIs(t, b.Do(func() error { called = true; return nil }, nil), ErrOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.NoError(t, b.Do(func() error { return nil }, nil))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	b := New("test", 1, time.Second)
	b.SetNow(func() time.Time { return now })
	b.RecordFailure()
	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresUncountedErrors(t *testing.T) {
	b := New("test", 1, time.Minute)
	notCounted := errors.New("bad symbol")
	_ = b.Do(func() error { return notCounted }, func(err error) bool { return !errors.Is(err, notCounted) })
	assert.Equal(t, StateClosed, b.State())
}
