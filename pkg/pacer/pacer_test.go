package pacer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/pkg/pacer"
)

type fakeClock struct {
	now   time.Time
	slept []time.Duration
	err   error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	if c.err != nil {
		return c.err
	}

	c.now = c.now.Add(d)
	return nil
}

func TestPacer(t *testing.T) {
	clock := newFakeClock()
	p := pacer.New(time.Second, pacer.WithClock(clock.Now, clock.Sleep))

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx), "first send is never delayed")

	clock.now = clock.now.Add(300 * time.Millisecond)
	require.NoError(t, p.Wait(ctx))

	clock.now = clock.now.Add(2 * time.Second)
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, []time.Duration{700 * time.Millisecond}, clock.slept)
}

func TestPacer_BackToBack(t *testing.T) {
	clock := newFakeClock()
	p := pacer.New(500*time.Millisecond, pacer.WithClock(clock.Now, clock.Sleep))

	for i := 0; i < 4; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 500 * time.Millisecond}, clock.slept)
}

func TestPacer_ZeroInterval(t *testing.T) {
	p := pacer.New(0, pacer.WithClock(nil, func(context.Context, time.Duration) error {
		t.Fatal("must not sleep")
		return nil
	}))

	for i := 0; i < 3; i++ {
		assert.NoError(t, p.Wait(context.Background()))
	}
}

func TestPacer_CanceledWaitGivesSlotBack(t *testing.T) {
	clock := newFakeClock()
	p := pacer.New(time.Second, pacer.WithClock(clock.Now, clock.Sleep))

	ctx := context.Background()
	require.NoError(t, p.Wait(ctx))

	clock.err = context.Canceled
	err := p.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))

	// canceled reservation does not push the next slot further
	clock.err = nil
	require.NoError(t, p.Wait(ctx))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.slept)
}

func TestPacer_RealClock(t *testing.T) {
	p := pacer.New(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestSleep_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pacer.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
