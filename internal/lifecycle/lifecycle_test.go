package lifecycle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexlabs/codeindex/internal/storage"
)

func TestInitialStateIsUninitialized(t *testing.T) {
	m := New()
	assert.Equal(t, StateUninitialized, m.State())
}

func TestPermittedTransitionsSucceed(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{StateUninitialized, StateIndexing},
		{StateIndexing, StateReady},
		{StateIndexing, StatePartial},
		{StateIndexing, StateError},
		{StateReady, StateIndexing},
		{StateReady, StateUninitialized},
		{StatePartial, StateIndexing},
		{StatePartial, StateUninitialized},
		{StateError, StateUninitialized},
		{StateError, StateIndexing},
	}
	for _, tc := range cases {
		m := New()
		m.state = tc.from // seed without going through Transition
		require.NoError(t, m.Transition(tc.to), "%s -> %s should be permitted", tc.from, tc.to)
		assert.Equal(t, tc.to, m.State())
	}
}

func TestIllegalTransitionsFailLoudly(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{StateUninitialized, StateReady},
		{StateUninitialized, StatePartial},
		{StateUninitialized, StateError},
		{StateReady, StateReady},
		{StateReady, StatePartial},
		{StateReady, StateError},
		{StatePartial, StatePartial},
		{StateError, StateReady},
	}
	for _, tc := range cases {
		m := New()
		m.state = tc.from
		err := m.Transition(tc.to)
		require.Error(t, err, "%s -> %s should be rejected", tc.from, tc.to)
		assert.True(t, errors.Is(err, storage.ErrInvalidTransition))
		assert.Equal(t, tc.from, m.State(), "state must not change on rejected transition")
	}
}

func TestProgressOnlyLegalDuringIndexing(t *testing.T) {
	m := New()
	err := m.UpdateProgress(Progress{Current: 1, Total: 10, Phase: "scan"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrInvalidTransition))

	require.NoError(t, m.Transition(StateIndexing))
	require.NoError(t, m.UpdateProgress(Progress{Current: 5, Total: 10, Phase: "embed"}))
	assert.Equal(t, Progress{Current: 5, Total: 10, Phase: "embed"}, m.Progress())

	require.NoError(t, m.Transition(StateReady))
	assert.Equal(t, Progress{}, m.Progress(), "progress must clear on leaving indexing")
}

func TestTransitionHistoryRingBufferCapsAt100(t *testing.T) {
	m := New()
	for i := 0; i < 130; i++ {
		require.NoError(t, m.Transition(StateIndexing))
		require.NoError(t, m.Transition(StateReady))
	}
	hist := m.History()
	assert.Len(t, hist, ringSize)
	// most recent entry must be the last transition performed.
	assert.Equal(t, StateReady, hist[len(hist)-1].To)
}

func TestObserverIsNotifiedOnEachTransition(t *testing.T) {
	m := New()
	var mu sync.Mutex
	var seen []State
	m.OnStateChange(func(from, to State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, to)
	})

	require.NoError(t, m.Transition(StateIndexing))
	require.NoError(t, m.Transition(StatePartial))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateIndexing, StatePartial}, seen)
}

func TestObserverPanicIsIsolated(t *testing.T) {
	m := New()
	called := false
	m.OnStateChange(func(from, to State) {
		panic("boom")
	})
	m.OnStateChange(func(from, to State) {
		called = true
	})

	require.NotPanics(t, func() {
		require.NoError(t, m.Transition(StateIndexing))
	})
	assert.True(t, called, "later observers still run after an earlier one panics")
}

func TestResetAlwaysReturnsToUninitializedRegardlessOfCurrentState(t *testing.T) {
	for _, from := range []State{StateUninitialized, StateIndexing, StateReady, StatePartial, StateError} {
		m := New()
		m.state = from
		m.Reset()
		assert.Equal(t, StateUninitialized, m.State())
		assert.Equal(t, Progress{}, m.Progress())
	}
}
