package services

import (
	"context"
	"time"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"

	"gorm.io/gorm"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
	recentWindow       = 7 * 24 * time.Hour
)

// DashboardStats 仪表盘统计
type DashboardStats struct {
	Total           int64 `json:"total_schools"`
	Active          int64 `json:"active_schools"`
	Inactive        int64 `json:"inactive_schools"`
	SetupCompleted  int64 `json:"setup_completed"`
	SetupPending    int64 `json:"setup_pending"`
	RecentAdditions int64 `json:"recent_additions"`
}

type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

// Stats 统计学校数量
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var row struct {
		Total           int64
		Active          int64
		SetupCompleted  int64
		RecentAdditions int64
	}

	since := s.now().Add(-recentWindow)
	err := s.db.WithContext(ctx).Model(&models.School{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active, "+
				"COALESCE(SUM(CASE WHEN setup_completed THEN 1 ELSE 0 END), 0) AS setup_completed, "+
				"COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS recent_additions",
			since,
		).
		Scan(&row).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &DashboardStats{
		Total:           row.Total,
		Active:          row.Active,
		Inactive:        row.Total - row.Active,
		SetupCompleted:  row.SetupCompleted,
		SetupPending:    row.Total - row.SetupCompleted,
		RecentAdditions: row.RecentAdditions,
	}, nil
}

// RecentSchools 最近创建的学校
func (s *DashboardService) RecentSchools(ctx context.Context, limit int) ([]models.SchoolSummary, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	var schools []*models.School
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&schools).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	summaries := make([]models.SchoolSummary, 0, len(schools))
	for _, school := range schools {
		summaries = append(summaries, school.Summary())
	}
	return summaries, nil
}
