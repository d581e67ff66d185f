package grpc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	pool := NewPool(WithDefaultCallOptions(grpc.CallContentSubtype("json")))
	t.Cleanup(func() { _ = pool.Close() })

	var wg sync.WaitGroup
	conns := make([]*grpc.ClientConn, 20)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := pool.GetConnection("localhost:50051")
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	for _, c := range conns {
		assert.Same(t, conns[0], c)
	}

	other, err := pool.GetConnection("localhost:50052")
	require.NoError(t, err)
	assert.NotSame(t, conns[0], other)
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	first, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPool_Close(t *testing.T) {
	pool := NewPool()
	_, err := pool.GetConnection("localhost:50051")
	require.NoError(t, err)

	require.NoError(t, pool.Close())

	count := 0
	pool.conns.Range(func(_, _ any) bool { count++; return true })
	assert.Zero(t, count)
}
