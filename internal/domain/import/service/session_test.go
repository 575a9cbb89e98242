package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

func newTestSession(importer *fakeImporter, key string) *Session {
	return NewSession(uuid.New(), key, newTestImportService(nil), NewOrchestrator(importer, testLogger()))
}

func selectCSV(t *testing.T, s *Session, content string) {
	t.Helper()
	_, err := s.Select(context.Background(), model.NewUploadedFile("s.csv", int64(len(content))), []byte(content))
	require.NoError(t, err)
}

func TestSession_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end", func(t *testing.T) {
		importer := &fakeImporter{resp: &model.ImportResponse{TotalRows: 2, CreatedCount: 2}}
		s := newTestSession(importer, "")

		selectCSV(t, s, "Employee,Quantity\nAna,8\nLuis,4\n")
		out, err := s.Import(ctx)
		require.NoError(t, err)

		require.Len(t, importer.calls, 1)
		assert.Equal(t, "Employee,Quantity\nAna,8\nLuis,4", importer.calls[0].CanonicalPayload)
		assert.Nil(t, importer.calls[0].AssociationKey)
		assert.Equal(t, model.CategoryFullSuccess, out.Category)

		state := s.State()
		assert.Equal(t, model.ModeGlobal, state.Mode)
		assert.Equal(t, out, state.Outcome)
		assert.False(t, state.Busy)
	})

	t.Run("nothing selected", func(t *testing.T) {
		importer := &fakeImporter{resp: &model.ImportResponse{}}
		s := newTestSession(importer, "a01")

		_, err := s.Import(ctx)
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Equal(t, 0, importer.callCount())
	})

	t.Run("scoped sessions send the association key", func(t *testing.T) {
		importer := &fakeImporter{resp: &model.ImportResponse{CreatedCount: 1}}
		s := newTestSession(importer, "a01")
		assert.Equal(t, model.ModeScoped, s.Mode())

		selectCSV(t, s, "a\n1\n")
		_, err := s.Import(ctx)
		require.NoError(t, err)
		require.NotNil(t, importer.calls[0].AssociationKey)
		assert.Equal(t, "a01", *importer.calls[0].AssociationKey)
	})

	t.Run("new selection replaces the outcome", func(t *testing.T) {
		importer := &fakeImporter{resp: &model.ImportResponse{CreatedCount: 1}}
		s := newTestSession(importer, "")

		selectCSV(t, s, "a\n1\n")
		_, err := s.Import(ctx)
		require.NoError(t, err)
		require.NotNil(t, s.State().Outcome)

		selectCSV(t, s, "b\n2\n")
		assert.Nil(t, s.State().Outcome)
		assert.Equal(t, "b\n2", s.State().File.Payload)
	})

	t.Run("rejected selection keeps the previous file", func(t *testing.T) {
		s := newTestSession(&fakeImporter{}, "")
		selectCSV(t, s, "a\n1\n")

		_, err := s.Select(ctx, model.NewUploadedFile("x.txt", 1), []byte("x"))
		require.Error(t, err)
		assert.Equal(t, "a\n1", s.State().File.Payload)
	})
}

func TestSession_StaleOutcomeDiscarded(t *testing.T) {
	importer := &fakeImporter{
		resp:    &model.ImportResponse{CreatedCount: 1},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newTestSession(importer, "")
	selectCSV(t, s, "a\n1\n")

	type result struct {
		out *model.Outcome
		err error
	}
	done := make(chan result)
	go func() {
		out, err := s.Import(context.Background())
		done <- result{out, err}
	}()
	<-importer.started

	assert.True(t, s.State().Busy)
	_, err := s.Import(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	s.Clear()
	close(importer.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, model.CategoryFullSuccess, res.out.Category)

	state := s.State()
	assert.Nil(t, state.Outcome, "outcome of a superseded submission must not be applied")
	assert.Nil(t, state.File)
	assert.False(t, state.Busy)
}

func TestSession_ImportOutlivesCallerContext(t *testing.T) {
	importer := &fakeImporter{
		resp:    &model.ImportResponse{TotalRows: 2, CreatedCount: 2},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	listener := &recordingListener{}
	s := NewSession(uuid.New(), "", newTestImportService(nil),
		NewOrchestrator(importer, testLogger()).WithListener(listener))
	selectCSV(t, s, "a\n1\n2\n")

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		out *model.Outcome
		err error
	}
	done := make(chan result)
	go func() {
		out, err := s.Import(ctx)
		done <- result{out, err}
	}()
	<-importer.started

	cancel()
	select {
	case <-done:
		t.Fatal("import returned before the remote call finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(importer.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, model.CategoryFullSuccess, res.out.Category)
	assert.Equal(t, res.out, s.State().Outcome)
	assert.Equal(t, []bool{true}, listener.Events())
}

func TestSession_Touch(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	s := newTestSession(&fakeImporter{}, "")
	s.now = func() time.Time { return now }

	now = now.Add(time.Minute)
	s.Clear()
	assert.Equal(t, now, s.State().LastTouched)
	assert.False(t, s.idleSince(now))
	assert.True(t, s.idleSince(now.Add(time.Second)))
}
