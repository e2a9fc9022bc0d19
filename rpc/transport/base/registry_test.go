package base

import (
	"errors"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/stretchr/testify/require"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistryResolve(t *testing.T) {
	r := newRegistry()

	ch, err := r.register(1)
	require.NoError(t, err)
	require.Equal(t, 1, r.len())

	reply := &common.Message{Type: common.MsgTPong}
	reply.SetReplyTo(1)

	require.True(t, r.resolve(1, reply))
	require.False(t, r.resolve(1, reply), "a request is resolved only once")
	require.Equal(t, 0, r.len())

	res := <-ch
	require.NoError(t, res.err)
	require.Same(t, reply, res.msg)
}

func TestRegistryDuplicateID(t *testing.T) {
	r := newRegistry()

	_, err := r.register(7)
	require.NoError(t, err)

	_, err = r.register(7)
	require.ErrorIs(t, err, common.ErrDuplicateMsgID)
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry()

	_, err := r.register(1)
	require.NoError(t, err)

	require.True(t, r.remove(1))
	require.False(t, r.remove(1))
	require.False(t, r.resolve(1, &common.Message{}), "late replies find no entry")
}

func TestRegistryFailAll(t *testing.T) {
	r := newRegistry()
	cause := errors.New("gone")

	var chans []<-chan responseResult
	for id := uint64(1); id <= 5; id++ {
		ch, err := r.register(id)
		require.NoError(t, err)
		chans = append(chans, ch)
	}

	require.Equal(t, 5, r.failAll(cause))
	require.Equal(t, 0, r.failAll(errors.New("other")), "second call finds nothing")
	require.Equal(t, 0, r.len())

	for _, ch := range chans {
		res := <-ch
		require.ErrorIs(t, res.err, cause)
	}

	// Registrations after failAll are rejected with the first cause
	_, err := r.register(6)
	require.ErrorIs(t, err, cause)
}

// TestRegistryExactlyOnce races resolve, remove and failAll against each
// other and checks that every request receives exactly one result
func TestRegistryExactlyOnce(t *testing.T) {
	const n = 1000
	r := newRegistry()
	cause := errors.New("closed")

	chans := make([]<-chan responseResult, n)
	for i := range chans {
		ch, err := r.register(uint64(i))
		require.NoError(t, err)
		chans[i] = ch
	}

	var removed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			r.resolve(uint64(i), &common.Message{})
		}
	}()
	go func() {
		defer wg.Done()
		for i := n - 1; i >= 0; i-- {
			if r.remove(uint64(i)) {
				removed.Add(1)
			}
		}
	}()
	go func() {
		defer wg.Done()
		r.failAll(cause)
	}()
	wg.Wait()

	delivered := 0
	for _, ch := range chans {
		select {
		case <-ch:
			delivered++
		default:
		}
		// never a second value
		select {
		case <-ch:
			t.Fatal("request resolved twice")
		default:
		}
	}
	require.EqualValues(t, n, int64(delivered)+removed.Load())
	require.Equal(t, 0, r.len())
}
