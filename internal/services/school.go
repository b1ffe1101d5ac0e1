package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"
	"schoolhub/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// 导出时一次最多取出的学校数量
const maxExportRows = 10000

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("schemaname", func(fl validator.FieldLevel) bool {
		return ValidateSchemaName(fl.Field().String()) == nil
	})
	return v
}

// CreateSchoolInput 创建学校参数
type CreateSchoolInput struct {
	Code            string
	Name            string
	Subdomain       string
	Address         string
	Phone           string
	Email           string
	LogoPath        string
	BannerPath      string
	PrincipalName   string
	EstablishedYear *int
	DBHost          string
	DBPort          int
	DBUsername      string
	DBPassword      string
	SchemaName      string
}

func (in *CreateSchoolInput) normalize() {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Subdomain = strings.ToLower(strings.TrimSpace(in.Subdomain))
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.DBHost = strings.TrimSpace(in.DBHost)
	in.DBUsername = strings.TrimSpace(in.DBUsername)
	in.SchemaName = strings.TrimSpace(in.SchemaName)
}

// SchoolUpdate 允许修改的字段，nil 表示未提供
type SchoolUpdate struct {
	Name            *string
	Address         *string
	Phone           *string
	Email           *string
	LogoPath        *string
	BannerPath      *string
	PrincipalName   *string
	EstablishedYear *int
}

func (u SchoolUpdate) columns() map[string]interface{} {
	updates := make(map[string]interface{})
	set := func(column string, value *string) {
		if value != nil {
			updates[column] = strings.TrimSpace(*value)
		}
	}
	set("name", u.Name)
	set("address", u.Address)
	set("phone", u.Phone)
	set("email", u.Email)
	set("logo_path", u.LogoPath)
	set("banner_path", u.BannerPath)
	set("principal_name", u.PrincipalName)
	if u.EstablishedYear != nil {
		updates["established_year"] = *u.EstablishedYear
	}
	return updates
}

// ListFilter 学校列表查询条件
type ListFilter struct {
	Search         string
	IsActive       *bool
	SetupCompleted *bool
	Page           int
	PageSize       int
}

// SchoolService 学校登记服务
type SchoolService struct {
	db          *gorm.DB
	cipher      *SecretCipher
	defaultPort int
}

func NewSchoolService(db *gorm.DB, cipher *SecretCipher, defaultPort int) *SchoolService {
	if defaultPort <= 0 {
		defaultPort = 5432
	}
	return &SchoolService{
		db:          db,
		cipher:      cipher,
		defaultPort: defaultPort,
	}
}

// DBNameFor 根据子域名生成逻辑数据库名
func DBNameFor(subdomain string) string {
	return fmt.Sprintf("school_%s_db", strings.ToLower(subdomain))
}

// Create 创建学校（未开通状态）
func (s *SchoolService) Create(ctx context.Context, in CreateSchoolInput) (*models.School, error) {
	in.normalize()
	if err := s.validateCreate(&in); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	// 检查唯一性
	checks := []struct {
		column  string
		value   string
		message string
	}{
		{"code", in.Code, "School code already exists. Please choose a different one."},
		{"subdomain", in.Subdomain, "Subdomain already exists. Please choose a different one."},
		{"schema_name", in.SchemaName, "Schema name already exists. Please choose a different one."},
	}
	for _, check := range checks {
		var count int64
		if err := db.Model(&models.School{}).Where(check.column+" = ?", check.value).Count(&count).Error; err != nil {
			return nil, apperrors.Internal(err)
		}
		if count > 0 {
			return nil, apperrors.Conflict(check.message)
		}
	}

	encrypted, err := s.cipher.Encrypt(in.DBPassword)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encrypt tenant secret: %w", err))
	}

	school := &models.School{
		Code:            in.Code,
		Name:            in.Name,
		Subdomain:       in.Subdomain,
		Address:         in.Address,
		Phone:           in.Phone,
		Email:           in.Email,
		LogoPath:        in.LogoPath,
		BannerPath:      in.BannerPath,
		PrincipalName:   in.PrincipalName,
		EstablishedYear: in.EstablishedYear,
		DBName:          DBNameFor(in.Subdomain),
		DBHost:          in.DBHost,
		DBPort:          in.DBPort,
		DBUsername:      in.DBUsername,
		DBPassword:      encrypted,
		SchemaName:      in.SchemaName,
		IsActive:        true,
		SetupCompleted:  false,
	}

	if err := db.Create(school).Error; err != nil {
		// 并发创建时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("School code, subdomain or schema name already exists.")
		}
		return nil, apperrors.Internal(err)
	}
	return school, nil
}

func (s *SchoolService) validateCreate(in *CreateSchoolInput) error {
	if in.Code == "" || in.Name == "" || in.Subdomain == "" || in.DBHost == "" || in.DBUsername == "" || in.DBPassword == "" {
		return apperrors.Validation("Code, name, subdomain, and database credentials are required")
	}
	if err := validate.Var(in.Code, "max=50"); err != nil {
		return apperrors.Validation("School code must be at most 50 characters")
	}
	if err := validate.Var(in.Subdomain, "alphanum,min=3,max=50"); err != nil {
		return apperrors.Validation("Subdomain must be 3-50 letters or digits")
	}
	if err := validate.Var(in.SchemaName, "required"); err != nil {
		return apperrors.Validation("Schema name is required")
	}
	if err := validate.Var(in.SchemaName, "schemaname"); err != nil {
		return apperrors.Validation("Schema name must start with a letter or underscore and contain only letters, digits and underscores (max 63)")
	}
	if err := validate.Var(in.Email, "omitempty,email"); err != nil {
		return apperrors.Validation("Invalid email address")
	}
	if in.DBPort == 0 {
		in.DBPort = s.defaultPort
	}
	if err := validate.Var(in.DBPort, "min=1,max=65535"); err != nil {
		return apperrors.Validation("Database port must be between 1 and 65535")
	}
	if in.EstablishedYear != nil {
		if err := validate.Var(*in.EstablishedYear, "min=1000,max=9999"); err != nil {
			return apperrors.Validation("Established year must be a four-digit year")
		}
	}
	return nil
}

// filtered 组合查询条件
func (s *SchoolService) filtered(db *gorm.DB, f ListFilter) *gorm.DB {
	query := db.Model(&models.School{})

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(subdomain) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\' OR LOWER(principal_name) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern, pattern,
		)
	}
	if f.IsActive != nil {
		query = query.Where("is_active = ?", *f.IsActive)
	}
	if f.SetupCompleted != nil {
		query = query.Where("setup_completed = ?", *f.SetupCompleted)
	}
	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List 分页查询，按创建时间倒序
func (s *SchoolService) List(ctx context.Context, f ListFilter) ([]*models.School, int64, error) {
	var schools []*models.School
	var total int64

	db := s.db.WithContext(ctx)
	if err := s.filtered(db, f).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	page := pagination.Bounded(f.Page, f.PageSize)
	err := s.filtered(db, f).
		Order("created_at DESC").Order("id DESC").
		Offset(page.GetOffset()).Limit(page.PageSize).
		Find(&schools).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return schools, total, nil
}

// ListAll 不分页查询（导出用）
func (s *SchoolService) ListAll(ctx context.Context, f ListFilter) ([]*models.School, error) {
	var schools []*models.School
	err := s.filtered(s.db.WithContext(ctx), f).
		Order("created_at DESC").Order("id DESC").
		Limit(maxExportRows).
		Find(&schools).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schools, nil
}

func (s *SchoolService) findOne(ctx context.Context, query string, args ...interface{}) (*models.School, error) {
	var school models.School
	err := s.db.WithContext(ctx).Where(query, args...).First(&school).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("School not found")
		}
		return nil, apperrors.Internal(err)
	}
	return &school, nil
}

// GetByID 根据ID获取学校
func (s *SchoolService) GetByID(ctx context.Context, id uint) (*models.School, error) {
	return s.findOne(ctx, "id = ?", id)
}

// GetByCode 根据学校代码获取（不区分大小写）
func (s *SchoolService) GetByCode(ctx context.Context, code string) (*models.School, error) {
	return s.findOne(ctx, "code = ?", strings.ToUpper(strings.TrimSpace(code)))
}

// GetBySubdomain 根据子域名获取（不区分大小写）
func (s *SchoolService) GetBySubdomain(ctx context.Context, subdomain string) (*models.School, error) {
	return s.findOne(ctx, "subdomain = ?", strings.ToLower(strings.TrimSpace(subdomain)))
}

// Update 更新学校基础信息，不会修改代码、子域名、数据库和开通相关字段
func (s *SchoolService) Update(ctx context.Context, id uint, u SchoolUpdate, partial bool) (*models.School, error) {
	school, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := u.columns()
	if len(updates) == 0 {
		if partial {
			return nil, apperrors.Validation("No fields to update")
		}
		return school, nil
	}

	if name, ok := updates["name"]; ok && name == "" {
		return nil, apperrors.Validation("School name cannot be empty")
	}
	if email, ok := updates["email"].(string); ok {
		if err := validate.Var(email, "omitempty,email"); err != nil {
			return nil, apperrors.Validation("Invalid email address")
		}
	}
	if year, ok := updates["established_year"].(int); ok {
		if err := validate.Var(year, "min=1000,max=9999"); err != nil {
			return nil, apperrors.Validation("Established year must be a four-digit year")
		}
	}

	if err := s.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.GetByID(ctx, id)
}

// SetActive 激活或停用
func (s *SchoolService) SetActive(ctx context.Context, id uint, active bool) (*models.School, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.GetByID(ctx, id)
}

// ToggleActive 切换激活状态，单条语句完成避免并发读改写
func (s *SchoolService) ToggleActive(ctx context.Context, id uint) (*models.School, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).
		Update("is_active", gorm.Expr("NOT is_active")).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return s.GetByID(ctx, id)
}

// Delete 删除学校，permanent 为 false 时只停用
func (s *SchoolService) Delete(ctx context.Context, id uint, permanent bool) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	if permanent {
		if err := db.Delete(&models.School{}, id).Error; err != nil {
			return apperrors.Internal(err)
		}
		return nil
	}

	if err := db.Model(&models.School{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// MarkProvisioned 开通成功后设置完成标记
func (s *SchoolService) MarkProvisioned(ctx context.Context, id uint) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Updates(map[string]interface{}{
		"setup_completed":      true,
		"provisioned_at":       &now,
		"last_provision_error": "",
	}).Error
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// RecordProvisionFailure 记录一次开通失败
func (s *SchoolService) RecordProvisionFailure(ctx context.Context, id uint, message string) error {
	err := s.db.WithContext(ctx).Model(&models.School{}).Where("id = ?", id).Updates(map[string]interface{}{
		"provision_attempts":   gorm.Expr("provision_attempts + 1"),
		"last_provision_error": message,
	}).Error
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// ListUnprovisioned 待补偿开通的学校：已激活、未完成、失败次数未达上限
func (s *SchoolService) ListUnprovisioned(ctx context.Context, maxAttempts, limit int) ([]*models.School, error) {
	var schools []*models.School
	err := s.db.WithContext(ctx).
		Where("setup_completed = ? AND is_active = ? AND provision_attempts < ?", false, true, maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&schools).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schools, nil
}

// ConnectionFor 取出学校的租户连接信息（解密密码）
func (s *SchoolService) ConnectionFor(school *models.School) (ProvisionRequest, error) {
	password, err := s.cipher.Decrypt(school.DBPassword)
	if err != nil {
		return ProvisionRequest{}, apperrors.Internal(err)
	}
	return ProvisionRequest{
		SchemaName: school.SchemaName,
		Host:       school.DBHost,
		Port:       school.DBPort,
		Username:   school.DBUsername,
		Password:   password,
	}, nil
}
