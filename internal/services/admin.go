package services

import (
	"context"
	"errors"
	"strings"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"
	"schoolhub/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 登录失败统一返回的信息，不区分邮箱不存在、账号停用还是密码错误
const invalidCredentialsMessage = "Invalid email or password"

// 邮箱不存在时也做一次哈希比较，避免通过耗时判断账号是否存在
var dummyPasswordHash, _ = bcrypt.GenerateFromPassword([]byte("schoolhub-dummy-password"), bcrypt.DefaultCost)

type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// GetByID 根据ID获取管理员
func (s *AdminService) GetByID(ctx context.Context, id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Admin not found")
		}
		return nil, apperrors.Internal(err)
	}
	return &admin, nil
}

// GetByEmail 根据邮箱获取管理员
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Admin not found")
		}
		return nil, apperrors.Internal(err)
	}
	return &admin, nil
}

// IsActive 检查管理员是否可用
func (s *AdminService) IsActive(admin *models.Admin) bool {
	return admin != nil && admin.IsActive
}

// Authenticate 校验邮箱和密码
func (s *AdminService) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	admin, err := s.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return nil, apperrors.Auth(invalidCredentialsMessage)
		}
		return nil, err
	}

	if !admin.CheckPassword(password) || !s.IsActive(admin) {
		return nil, apperrors.Auth(invalidCredentialsMessage)
	}
	return admin, nil
}

// ChangePassword 修改密码
func (s *AdminService) ChangePassword(ctx context.Context, id uint, currentPassword, newPassword string) error {
	admin, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !admin.CheckPassword(currentPassword) {
		return apperrors.Auth("Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := admin.SetPassword(newPassword); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.db.WithContext(ctx).Model(admin).Update("password", admin.PasswordHash).Error; err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// EnsureSuperAdmin 启动时创建超级管理员，已存在则跳过
func (s *AdminService) EnsureSuperAdmin(ctx context.Context, email, password, name string) (*models.Admin, bool, error) {
	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, false, err
	}

	if err := validate.Var(normalizeEmail(email), "required,email"); err != nil {
		return nil, false, apperrors.Validation("Super admin email is invalid")
	}
	if err := validatePassword(password); err != nil {
		return nil, false, err
	}

	admin := &models.Admin{
		Email:    normalizeEmail(email),
		Name:     name,
		Role:     models.AdminRoleSuperAdmin,
		IsActive: true,
	}
	if admin.Name == "" {
		admin.Name = "Super Admin"
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, false, apperrors.Internal(err)
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, false, apperrors.Internal(err)
	}

	logger.GetLogger().Infof("Super admin %s created", admin.Email)
	return admin, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.Validation("Password must be at least 8 characters")
	}
	// bcrypt 只使用前72字节
	if len(password) > 72 {
		return apperrors.Validation("Password must be at most 72 bytes")
	}
	return nil
}
