package flag_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/gomode/service/flag"
)

func TestFlagSetIsIdempotent(t *testing.T) {
	var f flag.Flag
	require.False(t, f.IsSet())

	require.True(t, f.Set())
	require.True(t, f.IsSet())

	// Second Set reports it was already latched.
	require.False(t, f.Set())
	require.True(t, f.IsSet())
}

func TestFlagDoneUnblocksOnSet(t *testing.T) {
	var f flag.Flag
	done := f.Done()

	select {
	case <-done:
		t.Fatal("Done channel closed before Set")
	default:
	}

	f.Set()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Done channel did not close after Set")
	}
}

func TestFlagDoneObservedAfterSet(t *testing.T) {
	var f flag.Flag
	f.Set()

	select {
	case <-f.Done():
	default:
		t.Fatal("Done channel not already closed")
	}
}

func TestFlagConcurrentSet(t *testing.T) {
	var f flag.Flag
	const n = 50
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() { results <- f.Set() }()
	}
	fired := 0
	for i := 0; i < n; i++ {
		if <-results {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}
