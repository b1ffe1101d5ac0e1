package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_Stats(t *testing.T) {
	schools, db := newTestSchoolService(t)
	ctx := context.Background()
	created := seedSchools(t, schools, 5)

	_, err := schools.SetActive(ctx, created[0].ID, false)
	require.NoError(t, err)
	_, err = schools.SetActive(ctx, created[1].ID, false)
	require.NoError(t, err)
	require.NoError(t, schools.MarkProvisioned(ctx, created[2].ID))

	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.School{}).Where("id = ?", created[3].ID).UpdateColumn("created_at", old).Error)

	stats, err := NewDashboardService(db).Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{
		Total:           5,
		Active:          3,
		Inactive:        2,
		SetupCompleted:  1,
		SetupPending:    4,
		RecentAdditions: 4,
	}, stats)
}

func TestDashboardService_Stats_Empty(t *testing.T) {
	stats, err := NewDashboardService(newTestDB(t)).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &DashboardStats{}, stats)
}

func TestDashboardService_RecentSchools(t *testing.T) {
	schools, db := newTestSchoolService(t)
	seedSchools(t, schools, 7)
	svc := NewDashboardService(db)

	recent, err := svc.RecentSchools(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "S06", recent[0].Code)

	recent, err = svc.RecentSchools(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, recent, 7)
}
