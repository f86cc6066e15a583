package repo

import (
	"DonorBot/model"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "donorbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func screening(userID int64, verdict model.Verdict, at time.Time) model.Screening {
	return model.Screening{
		ID:          uuid.NewString(),
		UserID:      userID,
		Answers:     model.AnswerRecord{model.QuestionAge: "30", model.QuestionDonatedBefore: "no"},
		Verdict:     verdict,
		AgeParsed:   true,
		CompletedAt: at,
	}
}

func TestSQLiteStore_ConsumeAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	sc := screening(7, model.VerdictPossiblyEligible, at)
	require.NoError(t, store.Consume(ctx, sc))

	got, err := store.ReadScreening(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc, *got)
}

func TestSQLiteStore_ConsumeReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sc := screening(7, model.VerdictPossiblyEligible, time.Now().UTC())
	require.NoError(t, store.Consume(ctx, sc))
	sc.Verdict = model.VerdictNotEligible
	require.NoError(t, store.Consume(ctx, sc))

	list, err := store.ListScreenings(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.VerdictNotEligible, list[0].Verdict)
}

func TestSQLiteStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadScreening(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrScreeningNotFound)
}

func TestSQLiteStore_ListScreenings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	older := screening(7, model.VerdictNotEligible, base)
	newer := screening(7, model.VerdictPossiblyEligible, base.Add(time.Hour))
	other := screening(8, model.VerdictPossiblyEligible, base.Add(2*time.Hour))
	for _, sc := range []model.Screening{older, newer, other} {
		require.NoError(t, store.Consume(ctx, sc))
	}

	list, err := store.ListScreenings(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	list, err = store.ListScreenings(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, newer.ID, list[0].ID)

	list, err = store.ListScreenings(ctx, 99, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	list := []model.Screening{
		{ID: "a", CompletedAt: base},
		{ID: "c", CompletedAt: base.Add(2 * time.Hour)},
		{ID: "b", CompletedAt: base.Add(time.Hour)},
	}

	got := sortNewestFirst(list, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
