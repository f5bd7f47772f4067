package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	task, err := store.GetTask(ctx, domain.TaskIDSessionExpiry)
	require.NoError(t, err)
	assert.Nil(t, task)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDSessionExpiry, Name: "Session Expiry", Interval: 5 * time.Minute, Enabled: true,
	}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: "a-task"}))

	task, err = store.GetTask(ctx, domain.TaskIDSessionExpiry)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 5*time.Minute, task.Interval)

	tasks, err := store.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a-task", tasks[0].ID)

	require.NoError(t, store.DeleteTask(ctx, "a-task"))
	tasks, err = store.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	assert.ErrorIs(t, store.SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_History(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDSessionExpiry,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			Success:        true,
			ItemsProcessed: i,
		}))
	}
	require.NoError(t, store.RecordResult(ctx, &domain.TaskResult{TaskID: "other", StartedAt: base}))

	history, err := store.GetTaskHistory(ctx, domain.TaskIDSessionExpiry, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 4, history[0].ItemsProcessed, "most recent first")
	assert.Equal(t, 2, history[2].ItemsProcessed)

	require.NoError(t, store.PruneHistory(ctx, 2))

	history, err = store.GetTaskHistory(ctx, domain.TaskIDSessionExpiry, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 4, history[0].ItemsProcessed)

	other, err := store.GetTaskHistory(ctx, "other", 10)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
