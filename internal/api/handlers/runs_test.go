package handlers_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/api/handlers"
	"github.com/noisycontents/uzu-orders/internal/pipeline"
)

func TestRegistryListsNewestFirst(t *testing.T) {
	reg := handlers.NewRegistry()
	now := time.Now()
	reg.Start("a", pipeline.ModeImwebDaily, pipeline.Options{}, now)
	reg.Start("b", pipeline.ModeWoocommerce, pipeline.Options{Date: "2025-03-01"}, now.Add(time.Second))

	runs := reg.List()
	require.Len(t, runs, 2)
	require.Equal(t, "b", runs[0].ID)
	require.Equal(t, handlers.StatusRunning, runs[0].Status)
}

func TestRegistryFinishRecordsOutcome(t *testing.T) {
	reg := handlers.NewRegistry()
	now := time.Now()
	reg.Start("a", pipeline.ModeImwebDaily, pipeline.Options{}, now)

	res := &pipeline.Result{Collected: 3, Rows: 4, Stored: 4}
	reg.Finish("a", res, nil, now.Add(time.Minute))

	run, ok := reg.Get("a")
	require.True(t, ok)
	require.Equal(t, handlers.StatusSucceeded, run.Status)
	require.Equal(t, 4, run.Stored)
	require.NotNil(t, run.FinishedAt)

	reg.Start("b", pipeline.ModeImwebDaily, pipeline.Options{}, now)
	reg.Finish("b", nil, errors.New("boom"), now)
	run, _ = reg.Get("b")
	require.Equal(t, handlers.StatusFailed, run.Status)
	require.Equal(t, "boom", run.Error)
}

func TestRegistryCopiesOnRead(t *testing.T) {
	reg := handlers.NewRegistry()
	reg.Start("a", pipeline.ModeImwebDaily, pipeline.Options{}, time.Now())

	run, _ := reg.Get("a")
	run.Status = "mutated"

	fresh, _ := reg.Get("a")
	require.Equal(t, handlers.StatusRunning, fresh.Status)
}
