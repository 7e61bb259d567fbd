package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/keep-bouncing-back/internal/apperror"
	"github.com/sakif/keep-bouncing-back/internal/model"
)

func newTestPegueService(t *testing.T) (*PegueService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewPegueService(store, store, testLogger()), store
}

func seedAccount(store *fakeStore, name string) *model.Account {
	a := &model.Account{Name: name, Email: name + "@example.com"}
	store.CreateAccount(context.Background(), a)
	return a
}

func seedTrick(store *fakeStore, name string, level int) model.Trick {
	store.InsertTrickIfMissing(context.Background(), name, level)
	for _, t := range store.tricks {
		if t.Name == name {
			return t
		}
	}
	return model.Trick{}
}

var sessionDate = time.Date(2026, 5, 1, 16, 30, 0, 0, time.UTC)

func TestPegueCreate(t *testing.T) {
	svc, store := newTestPegueService(t)
	ana := seedAccount(store, "ana")
	bounce := seedTrick(store, "Butt bounce", 1)

	p, err := svc.Create(context.Background(), ana, PegueInput{
		Equipment: "  Longline 80m ",
		Date:      sessionDate,
		Duration:  90,
		Notes:     "first 80m send",
		TrickIDs:  []int64{bounce.ID, bounce.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, ana.ID, p.UserID)
	assert.Equal(t, "Longline 80m", p.Equipment)
	require.Len(t, p.Tricks, 1, "duplicate ids collapse")
	assert.Equal(t, "Butt bounce", p.Tricks[0].Name)
	assert.Contains(t, store.pegues, p.ID)
}

func TestPegueCreate_OwnerMismatch(t *testing.T) {
	svc, store := newTestPegueService(t)
	ana := seedAccount(store, "ana")
	bob := seedAccount(store, "bob")

	_, err := svc.Create(context.Background(), ana, PegueInput{
		UserID:    &bob.ID,
		Equipment: "Shortline",
		Date:      sessionDate,
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Empty(t, store.pegues)
}

func TestPegueCreate_MatchingUserIDAccepted(t *testing.T) {
	svc, store := newTestPegueService(t)
	ana := seedAccount(store, "ana")

	_, err := svc.Create(context.Background(), ana, PegueInput{
		UserID:    &ana.ID,
		Equipment: "Shortline",
		Date:      sessionDate,
	})
	assert.NoError(t, err)
}

func TestPegueCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        PegueInput
		wantField string
	}{
		{"empty equipment", PegueInput{Equipment: "  ", Date: sessionDate}, "equipment"},
		{"long equipment", PegueInput{Equipment: string(make([]byte, 51)), Date: sessionDate}, "equipment"},
		{"missing date", PegueInput{Equipment: "Shortline"}, "date"},
		{"negative duration", PegueInput{Equipment: "Shortline", Date: sessionDate, Duration: -1}, "duration"},
		{"unknown trick", PegueInput{Equipment: "Shortline", Date: sessionDate, TrickIDs: []int64{404}}, "tricks_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestPegueService(t)
			ana := seedAccount(store, "ana")

			_, err := svc.Create(context.Background(), ana, tt.in)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestPegueCreate_UnknownTrickMessage(t *testing.T) {
	svc, store := newTestPegueService(t)
	ana := seedAccount(store, "ana")
	known := seedTrick(store, "Chest bounce", 1)

	_, err := svc.Create(context.Background(), ana, PegueInput{
		Equipment: "Shortline", Date: sessionDate, TrickIDs: []int64{known.ID, 999},
	})
	require.Error(t, err)
	assert.Equal(t, "one or more tricks do not exist", err.Error())
}

func TestPegueCreate_Unauthenticated(t *testing.T) {
	svc, _ := newTestPegueService(t)
	_, err := svc.Create(context.Background(), nil, PegueInput{Equipment: "Shortline", Date: sessionDate})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestPegueGetListDelete(t *testing.T) {
	svc, store := newTestPegueService(t)
	ana := seedAccount(store, "ana")
	bob := seedAccount(store, "bob")
	ctx := context.Background()

	mine, err := svc.Create(ctx, ana, PegueInput{Equipment: "Midline", Date: sessionDate})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, PegueInput{Equipment: "Waterline", Date: sessionDate.Add(time.Hour)})
	require.NoError(t, err)

	got, err := svc.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Midline", got.Equipment)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	onlyAna, err := svc.List(ctx, &ana.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, onlyAna, 1)

	all, err := svc.List(ctx, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, svc.Delete(ctx, bob, mine.ID), apperror.ErrForbidden)
	assert.Contains(t, store.pegues, mine.ID)

	require.NoError(t, svc.Delete(ctx, ana, mine.ID))
	assert.NotContains(t, store.pegues, mine.ID)

	assert.ErrorIs(t, svc.Delete(ctx, ana, mine.ID), apperror.ErrNotFound)
}
