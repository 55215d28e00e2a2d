package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository/memory"
)

func TestCreateCourt(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	court, err := svc.CreateCourt(ctx, "", "Quadra 1", domain.CategoryBeachTennis, 9000)
	require.NoError(t, err)
	assert.Equal(t, "quadra-1", court.ID, "id derived from the name")
	assert.EqualValues(t, 9000, court.HourlyRateCents)

	_, err = svc.CreateCourt(ctx, "quadra-1", "Quadra 1", domain.CategoryBeachTennis, 9000)
	assert.ErrorIs(t, err, ErrCourtConflict)
}

func TestCreateCourtValidation(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.CreateCourt(ctx, "", "Quadra 1", "tennis", 9000)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.CreateCourt(ctx, "", "Quadra 1", domain.CategoryVolleyball, 0)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = svc.CreateCourt(ctx, "", "", domain.CategoryVolleyball, 9000)
	assert.Error(t, err)
}

func TestListCourtsOrdered(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.CreateCourt(ctx, "", "Quadra 2", domain.CategoryVolleyball, 8000)
	require.NoError(t, err)
	_, err = svc.CreateCourt(ctx, "", "Quadra 1", domain.CategoryBeachTennis, 9000)
	require.NoError(t, err)

	out, err := svc.ListCourts(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "quadra-1", out[0].ID)
	assert.Equal(t, "quadra-2", out[1].ID)
}
