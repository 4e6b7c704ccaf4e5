package pipeline

import (
	"context"
	"time"

	"github.com/khaledhikmat/vs-liveness/service/config"
)

type Countdown struct {
	Seconds int
	Tick    time.Duration
}

func NewCountdown(params config.RecordingParameters) Countdown {
	return Countdown{
		Seconds: params.Seconds,
		Tick:    params.Tick,
	}
}

// Run emits the remaining time once per tick, from Seconds-1 down to 0.
// The channel is closed after 0 or when ctx is cancelled.
func (c Countdown) Run(ctx context.Context) <-chan int {
	out := make(chan int)

	go func() {
		defer close(out)

		ticker := time.NewTicker(c.Tick)
		defer ticker.Stop()

		for left := c.Seconds - 1; left >= 0; left-- {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case <-ctx.Done():
				return
			case out <- left:
			}
		}
	}()

	return out
}
