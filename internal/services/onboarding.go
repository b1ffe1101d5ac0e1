package services

import (
	"context"
	"fmt"
	"time"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"
	"schoolhub/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OnboardingService 学校创建与开通流程
//
// 开通失败时不会回滚已创建的学校记录：记录保留为未完成状态，
// 失败原因写回学校记录和 provision_logs，之后可以手动重试或由补偿任务处理。
type OnboardingService struct {
	db          *gorm.DB
	schools     *SchoolService
	provisioner Provisioner
}

func NewOnboardingService(db *gorm.DB, schools *SchoolService, provisioner Provisioner) *OnboardingService {
	return &OnboardingService{
		db:          db,
		schools:     schools,
		provisioner: provisioner,
	}
}

// CreateSchool 创建学校并同步开通schema
func (s *OnboardingService) CreateSchool(ctx context.Context, in CreateSchoolInput) (*models.School, error) {
	school, err := s.schools.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.provision(ctx, school, models.ProvisionTriggerCreate); err != nil {
		return school, err
	}
	return s.schools.GetByID(context.WithoutCancel(ctx), school.ID)
}

// Reprovision 手动重新开通
func (s *OnboardingService) Reprovision(ctx context.Context, id uint) (*models.School, error) {
	school, err := s.schools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.provision(ctx, school, models.ProvisionTriggerManual); err != nil {
		return nil, err
	}
	return s.schools.GetByID(context.WithoutCancel(ctx), id)
}

// ReconcilePending 对未完成开通的学校重试，返回成功和失败的数量
func (s *OnboardingService) ReconcilePending(ctx context.Context, maxAttempts, batch int) (succeeded, failed int, err error) {
	pending, err := s.schools.ListUnprovisioned(ctx, maxAttempts, batch)
	if err != nil {
		return 0, 0, err
	}

	for _, school := range pending {
		if ctx.Err() != nil {
			return succeeded, failed, ctx.Err()
		}
		if err := s.provision(ctx, school, models.ProvisionTriggerReconcile); err != nil {
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed, nil
}

func (s *OnboardingService) provision(ctx context.Context, school *models.School, trigger string) error {
	log := logger.GetLogger().WithFields(logrus.Fields{
		"school_id": school.ID,
		"code":      school.Code,
		"schema":    school.SchemaName,
		"trigger":   trigger,
	})

	req, err := s.schools.ConnectionFor(school)
	if err != nil {
		return err
	}

	start := time.Now()
	provisionErr := s.provisioner.Provision(ctx, req)
	elapsed := time.Since(start)

	// 远端开通可能已生效，记录结果不能随请求取消而丢失
	bookkeeping := context.WithoutCancel(ctx)
	s.writeLog(bookkeeping, school, trigger, provisionErr, elapsed)

	if provisionErr != nil {
		appErr, ok := apperrors.As(provisionErr)
		if !ok || appErr.Kind != apperrors.KindProvisioning {
			appErr = apperrors.Provisioning(provisionErr)
		}
		log.WithField("duration_ms", elapsed.Milliseconds()).Errorf("provisioning failed: %v", provisionErr)

		// 开通失败不回滚学校记录
		if err := s.schools.RecordProvisionFailure(bookkeeping, school.ID, appErr.Message); err != nil {
			log.Errorf("record provisioning failure: %v", err)
		}
		return appErr
	}

	if err := s.schools.MarkProvisioned(bookkeeping, school.ID); err != nil {
		return fmt.Errorf("mark school provisioned: %w", err)
	}
	log.WithField("duration_ms", elapsed.Milliseconds()).Info("school provisioned")
	return nil
}

func (s *OnboardingService) writeLog(ctx context.Context, school *models.School, trigger string, provisionErr error, elapsed time.Duration) {
	entry := &models.ProvisionLog{
		SchoolID:   school.ID,
		SchemaName: school.SchemaName,
		Trigger:    trigger,
		Status:     models.ProvisionStatusSuccess,
		DurationMs: elapsed.Milliseconds(),
		Details: datatypes.JSONMap{
			"host":     school.DBHost,
			"port":     school.DBPort,
			"username": school.DBUsername,
			"db_name":  school.DBName,
		},
	}
	if provisionErr != nil {
		entry.Status = models.ProvisionStatusFailed
		entry.Error = provisionErr.Error()
	}

	// 日志写入失败不影响开通结果
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.GetLogger().Warnf("write provision log for school %d: %v", school.ID, err)
	}
}

// ProvisionHistory 查询某个学校的开通记录，最新在前
func (s *OnboardingService) ProvisionHistory(ctx context.Context, schoolID uint, limit int) ([]*models.ProvisionLog, error) {
	if _, err := s.schools.GetByID(ctx, schoolID); err != nil {
		return nil, err
	}
	var logs []*models.ProvisionLog
	err := s.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return logs, nil
}
