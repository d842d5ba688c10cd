package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/wipchat/internal/database"
)

func setupEvents(t *testing.T) *EventRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewEventRepo(db)
}

func TestEventCreateAndListByDate(t *testing.T) {
	repo := setupEvents(t)
	ctx := context.Background()

	events := []Event{
		{ID: uuid.NewString(), Title: "dentist", Date: "2026-08-31", StartTime: "13:00", EndTime: "14:00"},
		{ID: uuid.NewString(), Title: "standup", Date: "2026-08-31", StartTime: "09:00", EndTime: "10:00"},
		{ID: uuid.NewString(), Title: "flight", Date: "2026-09-01", StartTime: "06:00", EndTime: "07:00"},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(ctx, e))
	}

	day, err := repo.ListByDate(ctx, "2026-08-31")
	require.NoError(t, err)
	require.Len(t, day, 2)
	// ordered by start time
	require.Equal(t, "standup", day[0].Title)
	require.Equal(t, "dentist", day[1].Title)

	empty, err := repo.ListByDate(ctx, "2026-10-01")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestEventDelete(t *testing.T) {
	repo := setupEvents(t)
	ctx := context.Background()

	e := Event{ID: uuid.NewString(), Title: "haircut", Date: "2026-08-31", StartTime: "11:00", EndTime: "12:00"}
	require.NoError(t, repo.Create(ctx, e))
	require.NoError(t, repo.Delete(ctx, e.ID))

	day, err := repo.ListByDate(ctx, "2026-08-31")
	require.NoError(t, err)
	require.Empty(t, day)
}
