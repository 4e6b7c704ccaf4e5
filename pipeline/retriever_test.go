package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/liveness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestRetriever(fetches ...liveness.FakeFetch) (*Retriever, *liveness.Fake, *recordedSleeps) {
	fake := liveness.NewFake()
	fake.Fetches = fetches

	sleeps := &recordedSleeps{}
	r := NewRetriever(fake, config.NewHardCoded().GetRetrieverParameters())
	r.Sleep = sleeps.sleep
	return r, fake, sleeps
}

func TestRetrieverPollsWhileNotReady(t *testing.T) {
	t.Parallel()

	artifact := model.ResultArtifact{Filename: "r.xlsx", Bytes: []byte("ok")}
	r, fake, sleeps := newTestRetriever(
		liveness.FakeFetch{Err: liveness.ErrNotReady},
		liveness.FakeFetch{Err: liveness.ErrNotReady},
		liveness.FakeFetch{Artifact: artifact},
	)

	got, err := r.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, artifact, got)
	assert.Equal(t, 3, fake.Polls())

	// Grace period followed by exactly two backoffs
	require.Len(t, sleeps.delays, 3)
	assert.Equal(t, 2*time.Second, sleeps.delays[0])
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeps.delays[1:])
}

func TestRetrieverHardFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	r, fake, sleeps := newTestRetriever(
		liveness.FakeFetch{Err: liveness.ErrFetchFailed},
		liveness.FakeFetch{Artifact: model.ResultArtifact{Filename: "never"}},
	)

	_, err := r.Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 1, fake.Polls())
	assert.Len(t, sleeps.delays, 1)
}

func TestRetrieverMaxAttempts(t *testing.T) {
	t.Parallel()

	r, fake, _ := newTestRetriever(liveness.FakeFetch{Err: liveness.ErrNotReady})
	r.MaxAttempts = 4

	_, err := r.Fetch(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 4, fake.Polls())
}

func TestRetrieverHonorsCancellation(t *testing.T) {
	t.Parallel()

	fake := liveness.NewFake()
	fake.Fetches = []liveness.FakeFetch{{Err: liveness.ErrNotReady}}
	r := NewRetriever(fake, config.RetrieverParameters{GracePeriod: time.Millisecond, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Fetch(ctx, "abc")
		done <- err
	}()

	require.Eventually(t, func() bool { return fake.Polls() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("retriever ignored cancellation")
	}
}
