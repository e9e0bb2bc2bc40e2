package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/testutil"
)

func newTestSession(t *testing.T, doc *domain.PickDocument) (*PickSession, *fakePickServer, *fakeMetrics) {
	t.Helper()
	server := newFakePickServer(doc)
	m := newFakeMetrics()
	session, err := NewPickSession(doc, server, logging.Nop(), m)
	require.NoError(t, err)
	return session, server, m
}

func lineOf(t *testing.T, session *PickSession, lineID string) domain.PickLine {
	t.Helper()
	doc := session.Document()
	require.NotNil(t, doc)
	idx := doc.LineIndex(lineID)
	require.GreaterOrEqual(t, idx, 0)
	return doc.Lines[idx]
}

func TestNewPickSession_RejectsInvalidDocument(t *testing.T) {
	doc := createTestDocument()
	doc.Lines[1].ID = "L1"

	_, err := NewPickSession(doc, newFakePickServer(doc), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	_, err = NewPickSession(nil, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestPickSession_DocumentIsACopy(t *testing.T) {
	doc := createTestDocument()
	session, _, _ := newTestSession(t, doc)

	doc.Lines[0].QtyPicked = 0
	assert.Equal(t, 3, lineOf(t, session, "L1").QtyPicked)

	snapshot := session.Document()
	snapshot.Lines[0].QtyPicked = 99
	assert.Equal(t, 3, lineOf(t, session, "L1").QtyPicked)
}

func TestApplyDelta_IncrementsToCompletion(t *testing.T) {
	ctx := context.Background()
	session, server, m := newTestSession(t, createTestDocument())

	require.NoError(t, session.ApplyDelta(ctx, "L1", 1))
	assert.Equal(t, 4, lineOf(t, session, "L1").QtyPicked)

	require.NoError(t, session.ApplyDelta(ctx, "L1", 1))
	assert.Equal(t, 5, lineOf(t, session, "L1").QtyPicked)
	assert.False(t, CanComplete(session.Document()), "L2 is still short")

	require.NoError(t, session.ApplyDelta(ctx, "L2", 1))
	assert.False(t, CanComplete(session.Document()))
	require.NoError(t, session.ApplyDelta(ctx, "L2", 1))
	assert.True(t, CanComplete(session.Document()))

	assert.Equal(t, 4, server.ApplyCalls())
	assert.Equal(t, 4, m.count(m.deltas, deltaCommitted))
	assert.Equal(t, 0, session.InFlight())
}

func TestApplyDelta_LocalGuards(t *testing.T) {
	tests := []struct {
		name      string
		picked    int
		delta     int
		expectErr error
	}{
		{"increment at capacity", 5, 1, domain.ErrOverflow},
		{"decrement at zero", 0, -1, domain.ErrBelowZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := createTestDocument()
			doc.Lines[0].QtyPicked = tt.picked
			session, server, m := newTestSession(t, doc)
			before := session.Document()

			err := session.ApplyDelta(context.Background(), "L1", tt.delta)

			assert.ErrorIs(t, err, tt.expectErr)
			assert.ErrorIs(t, err, domain.ErrLocalGuard)
			assert.Equal(t, domain.KindLocalGuard, domain.KindOf(err))
			assert.Equal(t, 0, server.ApplyCalls(), "no network call on a guard violation")
			assert.Equal(t, before, session.Document())
			assert.Equal(t, 1, m.count(m.deltas, deltaRejected))
		})
	}
}

func TestApplyDelta_InvalidInput(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())

	for _, delta := range []int{0, 2, -2} {
		assert.ErrorIs(t, session.ApplyDelta(context.Background(), "L1", delta), domain.ErrInvalidDelta)
	}
	assert.ErrorIs(t, session.ApplyDelta(context.Background(), "L9", 1), domain.ErrLineNotFound)
	assert.Equal(t, 0, server.ApplyCalls())
}

func TestApplyDelta_RollsBackOnRemoteFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind domain.ErrorKind
	}{
		{"http error", &domain.HTTPError{StatusCode: 500, Code: "INTERNAL_ERROR", Message: "boom"}, domain.KindHTTP},
		{"timeout", domain.ErrTimeout, domain.KindTimeout},
		{"network", domain.ErrNetwork, domain.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := createTestDocument()
			doc.Lines[0].QtyPicked = 5
			session, server, m := newTestSession(t, doc)
			server.failLine("L1", tt.err)
			before := session.Document()

			err := session.ApplyDelta(context.Background(), "L1", -1)

			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, before, session.Document(), "document must be restored exactly")
			assert.Equal(t, 5, lineOf(t, session, "L1").QtyPicked)
			assert.Equal(t, 0, session.InFlight())
			assert.Equal(t, 1, m.count(m.deltas, deltaRolledBack))
		})
	}
}

func TestApplyDelta_OptimisticValueVisibleWhileInFlight(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	release := server.blockLine("L1")

	done := make(chan error, 1)
	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	<-server.started

	assert.Equal(t, 4, lineOf(t, session, "L1").QtyPicked)
	assert.Equal(t, 1, session.InFlight())
	assert.True(t, session.PendingLines()["L1"])

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 4, lineOf(t, session, "L1").QtyPicked)
	assert.Equal(t, 0, session.InFlight())
}

func TestApplyDelta_RollbackOnlyTouchesItsLine(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	release := server.blockLine("L1")
	server.failLine("L1", &domain.HTTPError{StatusCode: 409, Code: "CONFLICT", Message: "stale"})

	done := make(chan error, 1)
	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	<-server.started

	require.NoError(t, session.ApplyDelta(context.Background(), "L2", 1))
	<-server.started

	close(release)
	require.Error(t, <-done)

	assert.Equal(t, 3, lineOf(t, session, "L1").QtyPicked)
	assert.Equal(t, 1, lineOf(t, session, "L2").QtyPicked)
}

func TestApplyDelta_SameLineCallsAreQueued(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	release := server.blockLine("L1")

	done := make(chan error, 2)
	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	<-server.started

	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, server.ApplyCalls(), "second call must wait for the first to settle")

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, 2, server.ApplyCalls())
	assert.Equal(t, 5, lineOf(t, session, "L1").QtyPicked)
}

func TestApplyDelta_QueuedCallRespectsContext(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	release := server.blockLine("L1")
	defer close(release)

	done := make(chan error, 1)
	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	<-server.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := session.ApplyDelta(ctx, "L1", 1)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, server.ApplyCalls())
}

func TestApplyDelta_EveryAttemptHasAFreshKey(t *testing.T) {
	doc := createTestDocument()
	doc.Lines[0].QtyRequired = 20
	doc.Lines[0].QtyPicked = 0
	session, server, _ := newTestSession(t, doc)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, session.ApplyDelta(ctx, "L1", 1))
	}
	server.failLine("L1", domain.ErrNetwork)
	require.Error(t, session.ApplyDelta(ctx, "L1", 1))
	require.Error(t, session.ApplyDelta(ctx, "L1", 1))
	server.failLine("L1", nil)
	require.NoError(t, session.ApplyDelta(ctx, "L1", -1))

	keys := server.Keys()
	require.Len(t, keys, 8)
	seen := make(map[string]bool)
	for _, key := range keys {
		assert.NotEmpty(t, key)
		assert.False(t, seen[key], "key %s reused", key)
		seen[key] = true
	}
}

func TestApplyDelta_ServerValueWins(t *testing.T) {
	doc := createTestDocument()
	session, server, _ := newTestSession(t, doc)

	server.mu.Lock()
	server.doc.Lines[0].QtyPicked = 1
	server.mu.Unlock()

	require.NoError(t, session.ApplyDelta(context.Background(), "L1", 1))
	assert.Equal(t, 2, lineOf(t, session, "L1").QtyPicked)
}

func TestApplyDelta_MismatchedLineIsRolledBack(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	server.wrongLineID = "L2"
	before := session.Document()

	err := session.ApplyDelta(context.Background(), "L1", 1)

	assert.ErrorIs(t, err, domain.ErrLineMismatch)
	assert.Equal(t, before, session.Document())
}

func TestApplyDelta_QuantitiesStayInRangeAfterMixedOutcomes(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	ctx := context.Background()

	steps := []struct {
		line  string
		delta int
		fail  error
	}{
		{"L1", 1, nil},
		{"L1", 1, domain.ErrTimeout},
		{"L1", 1, nil},
		{"L1", 1, nil},
		{"L2", -1, nil},
		{"L2", 1, &domain.HTTPError{StatusCode: 503}},
		{"L2", 1, nil},
		{"L1", -1, domain.ErrNetwork},
		{"L2", 1, nil},
		{"L2", 1, nil},
	}

	for _, step := range steps {
		server.failLine(step.line, step.fail)
		_ = session.ApplyDelta(ctx, step.line, step.delta)

		for _, line := range session.Document().Lines {
			assert.GreaterOrEqual(t, line.QtyPicked, 0)
			assert.LessOrEqual(t, line.QtyPicked, line.QtyRequired)
		}
	}

	assert.Equal(t, 5, lineOf(t, session, "L1").QtyPicked)
	assert.Equal(t, 2, lineOf(t, session, "L2").QtyPicked)
	assert.True(t, CanComplete(session.Document()))
}

func TestPickUnits(t *testing.T) {
	t.Run("applies every unit", func(t *testing.T) {
		session, server, _ := newTestSession(t, createTestDocument())

		applied, err := session.PickUnits(context.Background(), "L2", 2)

		require.NoError(t, err)
		assert.Equal(t, 2, applied)
		assert.Equal(t, 2, server.ApplyCalls())
		assert.Equal(t, 2, lineOf(t, session, "L2").QtyPicked)
	})

	t.Run("stops at the local guard", func(t *testing.T) {
		session, server, _ := newTestSession(t, createTestDocument())

		applied, err := session.PickUnits(context.Background(), "L2", 3)

		assert.ErrorIs(t, err, domain.ErrOverflow)
		assert.Equal(t, 2, applied)
		assert.Equal(t, 2, server.ApplyCalls())
	})

	t.Run("negative units decrement", func(t *testing.T) {
		session, _, _ := newTestSession(t, createTestDocument())

		applied, err := session.PickUnits(context.Background(), "L1", -2)

		require.NoError(t, err)
		assert.Equal(t, 2, applied)
		assert.Equal(t, 1, lineOf(t, session, "L1").QtyPicked)
	})

	t.Run("zero is invalid", func(t *testing.T) {
		session, _, _ := newTestSession(t, createTestDocument())

		_, err := session.PickUnits(context.Background(), "L1", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidDelta)
	})
}

func TestPickSession_Close(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())

	session.Close()

	assert.True(t, session.Closed())
	assert.Nil(t, session.Document())
	assert.ErrorIs(t, session.ApplyDelta(context.Background(), "L1", 1), domain.ErrSessionClosed)
	assert.Equal(t, 0, server.ApplyCalls())
}

func TestPickSession_CloseWhileInFlightDropsResult(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	release := server.blockLine("L1")

	done := make(chan error, 1)
	go func() { done <- session.ApplyDelta(context.Background(), "L1", 1) }()
	<-server.started

	session.Close()
	close(release)

	require.NoError(t, <-done)
	assert.Nil(t, session.Document())
	testutil.AssertEventually(t, func() bool { return session.InFlight() == 0 }, time.Second, "in-flight entry cleared")
}

func TestPickSession_ErrorsWrapRemoteCause(t *testing.T) {
	session, server, _ := newTestSession(t, createTestDocument())
	cause := &domain.HTTPError{StatusCode: 422, Code: "VALIDATION_ERROR", Message: "line locked"}
	server.failLine("L1", cause)

	err := session.ApplyDelta(context.Background(), "L1", 1)

	var httpErr *domain.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 422, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "L1")
}
