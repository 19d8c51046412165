package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
)

func snapshot(sessionID string, revision int64, name string) Snapshot {
	return Snapshot{
		SessionID: sessionID,
		Customer:  models.CustomerSnapshot{Name: name, Phone: "01712345678"},
		Cart: []models.CartLine{
			{ProductID: uuid.MustParse("6a1f0c55-8c1e-4c43-9a55-0b8f8f1d2a10"), Quantity: 2, UnitPrice: 450, NameSnapshot: "Panjabi"},
		},
		Revision:    revision,
		SubmittedAt: time.Unix(0, revision).UTC(),
	}
}

func countRows(t *testing.T, conn *gorm.DB, sessionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.CheckoutSession{}).Where("session_id = ?", sessionID).Count(&n).Error)
	return n
}

func TestRepositorySaveUpsertsOneActiveRow(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	outcome, err := repo.Save(ctx, snapshot("sess-1", 100, "Rahim"))
	require.NoError(t, err)
	assert.Equal(t, SaveInserted, outcome)

	outcome, err = repo.Save(ctx, snapshot("sess-1", 200, "Rahim Uddin"))
	require.NoError(t, err)
	assert.Equal(t, SaveUpdated, outcome)

	// identical payload at a newer revision still lands on the same row
	outcome, err = repo.Save(ctx, snapshot("sess-1", 300, "Rahim Uddin"))
	require.NoError(t, err)
	assert.Equal(t, SaveUpdated, outcome)
	assert.Equal(t, int64(1), countRows(t, conn, "sess-1"))

	row, err := repo.FindActive(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Rahim Uddin", row.Customer.Name)
	assert.Equal(t, int64(300), row.Revision)
	require.Len(t, row.Cart, 1)
	assert.Equal(t, int64(450), row.Cart[0].UnitPrice)
}

func TestRepositorySaveRejectsOlderRevision(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.Save(ctx, snapshot("sess-2", 500, "newest"))
	require.NoError(t, err)

	outcome, err := repo.Save(ctx, snapshot("sess-2", 400, "older"))
	require.NoError(t, err)
	assert.Equal(t, SaveStale, outcome)

	row, err := repo.FindActive(ctx, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, "newest", row.Customer.Name)
}

func TestRepositoryConvertedSessionIsTerminal(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	orderID := uuid.New()

	_, err := repo.Save(ctx, snapshot("sess-3", 100, "Karim"))
	require.NoError(t, err)

	n, err := repo.MarkConverted(ctx, "sess-3", orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkConverted(ctx, "sess-3", uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n, "a converted session cannot be converted again")

	outcome, err := repo.Save(ctx, snapshot("sess-3", 200, "late autosave"))
	require.NoError(t, err)
	assert.Equal(t, SaveStale, outcome)
	assert.Equal(t, int64(1), countRows(t, conn, "sess-3"))

	converted, err := repo.FindConverted(ctx, "sess-3")
	require.NoError(t, err)
	require.NotNil(t, converted.ConvertedOrderID)
	assert.Equal(t, orderID, *converted.ConvertedOrderID)

	_, err = repo.FindActive(ctx, "sess-3")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListAbandonedAndDelete(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	stale := snapshot("idle", 1, "idle shopper")
	stale.SubmittedAt = now.Add(-2 * time.Hour)
	fresh := snapshot("active", 2, "busy shopper")
	fresh.SubmittedAt = now.Add(-time.Minute)
	for _, s := range []Snapshot{stale, fresh} {
		_, err := repo.Save(ctx, s)
		require.NoError(t, err)
	}

	rows, err := repo.ListAbandoned(ctx, now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "idle", rows[0].SessionID)

	n, err := repo.DeleteActive(ctx, "idle")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Zero(t, countRows(t, conn, "idle"))
}
