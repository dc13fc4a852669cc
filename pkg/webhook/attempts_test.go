package webhook_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelog/billing/pkg/webhook"
)

func TestMemoryAttempts(t *testing.T) {
	t.Parallel()

	attempts := webhook.NewMemoryAttempts()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		n, err := attempts.Incr(ctx, "mem_1")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// Counts are independent per membership.
	n, err := attempts.Incr(ctx, "mem_2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, attempts.Reset(ctx, "mem_1"))
	n, err = attempts.Incr(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryAttemptsConcurrent(t *testing.T) {
	t.Parallel()

	attempts := webhook.NewMemoryAttempts()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = attempts.Incr(ctx, "mem_1")
		}()
	}
	wg.Wait()

	final, err := attempts.Incr(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, n+1, final)
}
