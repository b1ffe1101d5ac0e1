package models

import "time"

// School 学校（租户）登记信息
type School struct {
	ID        uint   `gorm:"primarykey"`
	Code      string `gorm:"uniqueIndex;not null;size:50"`
	Name      string `gorm:"not null;size:255"`
	Subdomain string `gorm:"uniqueIndex;not null;size:50"`

	Address         string `gorm:"type:text"`
	Phone           string `gorm:"size:50"`
	Email           string `gorm:"size:255"`
	LogoPath        string `gorm:"column:logo_path;size:500"`
	BannerPath      string `gorm:"column:banner_path;size:500"`
	PrincipalName   string `gorm:"column:principal_name;size:255"`
	EstablishedYear *int   `gorm:"column:established_year"`

	// 租户数据库连接，db_password 加密存储
	DBName     string `gorm:"column:db_name;uniqueIndex;not null;size:100"`
	DBHost     string `gorm:"column:db_host;not null;size:255"`
	DBPort     int    `gorm:"column:db_port;not null;default:5432"`
	DBUsername string `gorm:"column:db_username;not null;size:255"`
	DBPassword string `gorm:"column:db_password;not null"`
	SchemaName string `gorm:"column:schema_name;uniqueIndex;not null;size:63"`

	IsActive       bool `gorm:"column:is_active;not null;default:true;index"`
	SetupCompleted bool `gorm:"column:setup_completed;not null;default:false;index"`

	ProvisionAttempts  int        `gorm:"column:provision_attempts;not null;default:0"`
	LastProvisionError string     `gorm:"column:last_provision_error;type:text"`
	ProvisionedAt      *time.Time `gorm:"column:provisioned_at"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 表名
func (s *School) TableName() string {
	return "schools"
}

// SchoolView 对外返回的学校信息，不包含数据库密码。
// is_active 和 isActive 同时输出，兼容老客户端。
type SchoolView struct {
	ID                 uint       `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Subdomain          string     `json:"subdomain"`
	Address            string     `json:"address"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	LogoPath           string     `json:"logoPath"`
	BannerPath         string     `json:"bannerPath"`
	PrincipalName      string     `json:"principalName"`
	EstablishedYear    *int       `json:"establishedYear"`
	DBName             string     `json:"db_name"`
	DBHost             string     `json:"db_host"`
	DBPort             int        `json:"db_port"`
	DBUsername         string     `json:"db_username"`
	SchemaName         string     `json:"schema_name"`
	IsActive           bool       `json:"is_active"`
	IsActiveAlias      bool       `json:"isActive"`
	SetupCompleted     bool       `json:"setup_completed"`
	ProvisionAttempts  int        `json:"provision_attempts"`
	LastProvisionError string     `json:"last_provision_error,omitempty"`
	ProvisionedAt      *time.Time `json:"provisioned_at,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// SchoolSummary 仪表盘最近学校列表
type SchoolSummary struct {
	ID             uint      `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Subdomain      string    `json:"subdomain"`
	PrincipalName  string    `json:"principalName"`
	IsActive       bool      `json:"is_active"`
	SetupCompleted bool      `json:"setup_completed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// View 转换为对外结构
func (s *School) View() SchoolView {
	return SchoolView{
		ID:                 s.ID,
		Code:               s.Code,
		Name:               s.Name,
		Subdomain:          s.Subdomain,
		Address:            s.Address,
		Phone:              s.Phone,
		Email:              s.Email,
		LogoPath:           s.LogoPath,
		BannerPath:         s.BannerPath,
		PrincipalName:      s.PrincipalName,
		EstablishedYear:    s.EstablishedYear,
		DBName:             s.DBName,
		DBHost:             s.DBHost,
		DBPort:             s.DBPort,
		DBUsername:         s.DBUsername,
		SchemaName:         s.SchemaName,
		IsActive:           s.IsActive,
		IsActiveAlias:      s.IsActive,
		SetupCompleted:     s.SetupCompleted,
		ProvisionAttempts:  s.ProvisionAttempts,
		LastProvisionError: s.LastProvisionError,
		ProvisionedAt:      s.ProvisionedAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// Summary 转换为仪表盘摘要
func (s *School) Summary() SchoolSummary {
	return SchoolSummary{
		ID:             s.ID,
		Code:           s.Code,
		Name:           s.Name,
		Subdomain:      s.Subdomain,
		PrincipalName:  s.PrincipalName,
		IsActive:       s.IsActive,
		SetupCompleted: s.SetupCompleted,
		CreatedAt:      s.CreatedAt,
	}
}

// SchoolViews 批量转换
func SchoolViews(schools []*School) []SchoolView {
	views := make([]SchoolView, 0, len(schools))
	for _, s := range schools {
		views = append(views, s.View())
	}
	return views
}
