package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"swineotype/core/decision"
	"swineotype/internal/report"
)

type sampleFunc func(ctx context.Context, asm string) (report.Record, error)

func (f sampleFunc) Process(ctx context.Context, asm string) (report.Record, error) { return f(ctx, asm) }

func TestRunKeepsOrderAndSkipsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak int32
	s := sampleFunc(func(_ context.Context, asm string) (report.Record, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if asm == "bad.fa" {
			return report.Record{}, errors.New("makeblastdb failed")
		}
		return report.Record{Sample: asm, Status: decision.StatusStage1, FinalSerotype: "7"}, nil
	})

	in := []string{"a.fa", "bad.fa", "c.fa", "d.fa", "e.fa"}
	var seen []string
	recs, err := Run(context.Background(), s, in, 2, nil, func(r report.Record) { seen = append(seen, r.Sample) })
	require.NoError(t, err)
	require.Len(t, recs, len(in))
	for i, r := range recs {
		assert.Equal(t, in[i], r.Sample)
	}
	assert.Equal(t, decision.StatusSkipped, recs[1].Status)
	assert.EqualError(t, recs[1].Err, "makeblastdb failed")
	assert.ElementsMatch(t, in, seen)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	s := sampleFunc(func(ctx context.Context, asm string) (report.Record, error) {
		cancel()
		<-ctx.Done()
		return report.Record{}, ctx.Err()
	})
	_, err := Run(ctx, s, []string{"a.fa", "b.fa", "c.fa"}, 1, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}
