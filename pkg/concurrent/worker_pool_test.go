package concurrent

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsJobOrder(t *testing.T) {
	jobs := []int{}
	for i := 0; i < 100; i++ {
		jobs = append(jobs, i)
	}

	for _, workers := range []int{0, 1, 4, 200} {
		got, err := Run(context.Background(), workers, jobs, func(_ context.Context, job int) int {
			return job * job
		})
		require.NoError(t, err)
		require.Len(t, got, len(jobs))
		for i, v := range got {
			assert.Equal(t, i*i, v)
		}
	}
}

func TestRunNoJobs(t *testing.T) {
	got, err := Run(context.Background(), 4, []string{}, func(_ context.Context, job string) int {
		return len(job)
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	jobs := make([]int, 50)

	_, err := Run(ctx, 1, jobs, func(_ context.Context, _ int) int {
		if ran.Add(1) == 3 {
			cancel()
		}
		return 0
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, int(ran.Load()), len(jobs))
}
