package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

type countingRegenerator struct {
	calls atomic.Int32
	err   error
}

func (c *countingRegenerator) RegenerateAndWait(ctx context.Context) (models.RegenerateResult, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return models.RegenerateResult{}, errors.New("missing deadline")
	}
	return models.RegenerateResult{Count: 1, KeywordSets: []string{"budget"}}, c.err
}

func TestSchedulerFiresOnSchedule(t *testing.T) {
	regen := &countingRegenerator{}
	s := New(regen, time.Second, nil)
	require.NoError(t, s.Start("* * * * * *"))
	defer s.Stop()

	assert.False(t, s.Next().IsZero())
	assert.Eventually(t, func() bool { return regen.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(&countingRegenerator{}, 0, nil)
	require.Error(t, s.Start("every tuesday"))
	assert.True(t, s.Next().IsZero())
	s.Stop()
}

func TestSchedulerRequiresRegenerator(t *testing.T) {
	require.Error(t, New(nil, 0, nil).Start(""))
}

func TestSchedulerStartTwice(t *testing.T) {
	s := New(&countingRegenerator{}, 0, nil)
	require.NoError(t, s.Start(""))
	defer s.Stop()
	require.Error(t, s.Start(""))
}

func TestRunNowSurvivesFailure(t *testing.T) {
	regen := &countingRegenerator{err: errors.New("gemini down")}
	s := New(regen, time.Second, nil)
	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), regen.calls.Load())
}

func TestRunNowSkipsWhileRegenerationInFlight(t *testing.T) {
	var logs bytes.Buffer
	regen := &countingRegenerator{err: fmt.Errorf("regenerate: %w", utils.ErrAlreadyRunning)}
	s := New(regen, time.Second, utils.NewLogger(&logs, "info", false))
	s.RunNow()
	assert.Equal(t, int32(1), regen.calls.Load())
	assert.Contains(t, logs.String(), "scheduled regeneration skipped")
	assert.NotContains(t, logs.String(), "level=ERROR")
}
