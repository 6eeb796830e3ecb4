package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/movewise/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSearchJobRunner is a mock implementation of SearchJobRunner
type MockSearchJobRunner struct {
	mock.Mock
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (m *MockSearchJobRunner) ClaimPending(ctx context.Context, limit int) ([]*domain.SearchJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SearchJob), args.Error(1)
}

func (m *MockSearchJobRunner) Execute(ctx context.Context, job *domain.SearchJob) error {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	args := m.Called(ctx, job.ID)
	return args.Error(0)
}

func runningJobs(ids ...string) []*domain.SearchJob {
	out := make([]*domain.SearchJob, len(ids))
	for i, id := range ids {
		out[i] = &domain.SearchJob{ID: id, Status: domain.JobStatusRunning}
	}
	return out
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(context.Background())
	}()

	time.Sleep(250 * time.Millisecond)
	worker.Stop()
	worker.Stop()
	wg.Wait()

	// Once at start plus at least one tick.
	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("db down"))

	worker := NewWorker(mockProcessor, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	mockProcessor.AssertNumberOfCalls(t, "ProcessJobs", 1)
}

func TestSearchJobWorker_NoPendingJobs(t *testing.T) {
	runner := new(MockSearchJobRunner)
	runner.On("ClaimPending", mock.Anything, 4).Return([]*domain.SearchJob{}, nil)

	err := NewSearchJobWorker(runner, 4).ProcessJobs(context.Background())

	assert.NoError(t, err)
	runner.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestSearchJobWorker_ExecutesEveryClaimedJob(t *testing.T) {
	runner := new(MockSearchJobRunner)
	runner.On("ClaimPending", mock.Anything, 2).Return(runningJobs("a", "b"), nil)
	runner.On("Execute", mock.Anything, "a").Return(nil)
	runner.On("Execute", mock.Anything, "b").Return(errors.New("job failed"))

	err := NewSearchJobWorker(runner, 2).ProcessJobs(context.Background())

	require.NoError(t, err)
	runner.AssertExpectations(t)
}

func TestSearchJobWorker_BoundsConcurrency(t *testing.T) {
	runner := new(MockSearchJobRunner)
	runner.On("ClaimPending", mock.Anything, 2).Return(runningJobs("a", "b", "c", "d", "e"), nil)
	runner.On("Execute", mock.Anything, mock.Anything).After(20 * time.Millisecond).Return(nil)

	err := NewSearchJobWorker(runner, 2).ProcessJobs(context.Background())

	require.NoError(t, err)
	runner.AssertNumberOfCalls(t, "Execute", 5)
	assert.LessOrEqual(t, runner.maxInFlight.Load(), int32(2))
}

func TestSearchJobWorker_PanicIsContained(t *testing.T) {
	runner := new(MockSearchJobRunner)
	runner.On("ClaimPending", mock.Anything, 1).Return(runningJobs("a"), nil)
	runner.On("Execute", mock.Anything, "a").Panic("boom")

	assert.NotPanics(t, func() {
		assert.NoError(t, NewSearchJobWorker(runner, 0).ProcessJobs(context.Background()))
	})
}

func TestSearchJobWorker_ClaimError(t *testing.T) {
	runner := new(MockSearchJobRunner)
	runner.On("ClaimPending", mock.Anything, 1).Return(nil, errors.New("database error"))

	err := NewSearchJobWorker(runner, 1).ProcessJobs(context.Background())

	assert.ErrorContains(t, err, "failed to claim pending jobs")
}

func TestScheduler_RunsTasks(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.Add(context.Background(), "sweep", "@every 1s", func(context.Context) (int64, error) {
		runs.Add(1)
		return 1, nil
	}))
	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopTimesOutOnRunningTask(t *testing.T) {
	s := NewScheduler()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.Add(context.Background(), "slow", "@every 1s", func(context.Context) (int64, error) {
		once.Do(func() { close(started) })
		<-release
		return 0, nil
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	err := NewScheduler().Add(context.Background(), "sweep", "every now and then", func(context.Context) (int64, error) {
		return 0, nil
	})
	assert.ErrorContains(t, err, "schedule sweep")
}
