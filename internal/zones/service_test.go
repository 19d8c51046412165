package zones

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
)

func TestZoneServiceAgainstDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	inside := models.DeliveryZone{ID: uuid.New(), Name: "Inside Dhaka", Charge: 60, IsActive: true, SortOrder: 1}
	outside := models.DeliveryZone{ID: uuid.New(), Name: "Outside Dhaka", Charge: 120, IsActive: true, SortOrder: 2}
	retired := models.DeliveryZone{ID: uuid.New(), Name: "Sub-city", Charge: 80, IsActive: false}
	for _, z := range []*models.DeliveryZone{&outside, &inside, &retired} {
		require.NoError(t, conn.Create(z).Error)
	}

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Inside Dhaka", list[0].Name)
	assert.Equal(t, int64(120), list[1].Charge)

	zone, err := svc.Resolve(ctx, &inside.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), zone.Charge)

	zone, err = svc.Resolve(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, zone)

	_, err = svc.Resolve(ctx, &retired.ID)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUnknownZone))

	missing := uuid.New()
	_, err = svc.Resolve(ctx, &missing)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonUnknownZone))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
