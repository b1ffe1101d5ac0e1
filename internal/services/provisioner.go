package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"
	"schoolhub/pkg/logger"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var schemaNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateSchemaName 校验租户schema名
func ValidateSchemaName(name string) error {
	if !schemaNamePattern.MatchString(name) {
		return fmt.Errorf("invalid schema name %q", name)
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "pg_") || lower == "public" || lower == "information_schema" {
		return fmt.Errorf("schema name %q is reserved", name)
	}
	return nil
}

// ProvisionRequest 开通一个租户schema所需的连接信息
type ProvisionRequest struct {
	SchemaName string
	Host       string
	Port       int
	Username   string
	Password   string
}

// Provisioner 租户schema开通
type Provisioner interface {
	Provision(ctx context.Context, req ProvisionRequest) error
}

// TenantOpener 打开一个作用于指定schema的连接
type TenantOpener func(dsn, schemaName string) (*gorm.DB, error)

// OpenTenantDB 默认的postgres连接方式，表名统一加上 schema 前缀。
// 不在这里 ping，由调用方带上下文建立连接。
func OpenTenantDB(dsn, schemaName string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: schemaName + ".",
		},
	})
}

// TenantProvisioner 在共享数据库中为学校创建独立schema和基础表
type TenantProvisioner struct {
	dbName  string
	sslMode string
	timeout time.Duration
	open    TenantOpener
}

func NewTenantProvisioner(dbName, sslMode string, timeout time.Duration, open TenantOpener) *TenantProvisioner {
	if open == nil {
		open = OpenTenantDB
	}
	return &TenantProvisioner{
		dbName:  dbName,
		sslMode: sslMode,
		timeout: timeout,
		open:    open,
	}
}

func (p *TenantProvisioner) dsn(req ProvisionRequest) string {
	port := req.Port
	if port == 0 {
		port = 5432
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(req.Host), port, quoteDSNValue(req.Username), quoteDSNValue(req.Password),
		quoteDSNValue(p.dbName), quoteDSNValue(p.sslMode))
	if p.timeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(math.Ceil(p.timeout.Seconds())))
	}
	return dsn
}

// quoteDSNValue 按 libpq key=value 规则转义
func quoteDSNValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

// Provision 创建schema（已存在则跳过）并同步 students / teachers 表。
// 重复执行不会删除已有数据，只会把表结构调整到当前定义。
func (p *TenantProvisioner) Provision(ctx context.Context, req ProvisionRequest) error {
	if err := ValidateSchemaName(req.SchemaName); err != nil {
		return apperrors.Provisioning(err)
	}
	if req.Host == "" || req.Username == "" {
		return apperrors.Provisioning(errors.New("database host and username are required"))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log := logger.GetLogger().WithFields(logrus.Fields{
		"schema": req.SchemaName,
		"host":   req.Host,
		"port":   req.Port,
	})

	db, err := p.open(p.dsn(req), req.SchemaName)
	if err != nil {
		return apperrors.Provisioning(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return apperrors.Provisioning(err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Warnf("close tenant connection: %v", cerr)
		}
	}()
	// search_path 是会话级设置，只保留一个连接保证后续语句都在同一会话
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		return apperrors.Provisioning(err)
	}

	quoted := pq.QuoteIdentifier(req.SchemaName)
	tx := db.WithContext(ctx)

	if err := tx.Exec("CREATE SCHEMA IF NOT EXISTS " + quoted).Error; err != nil {
		return apperrors.Provisioning(err)
	}
	if err := tx.Exec("SET search_path TO " + quoted).Error; err != nil {
		return apperrors.Provisioning(err)
	}
	if err := tx.AutoMigrate(models.TenantBaselineModels()...); err != nil {
		return apperrors.Provisioning(err)
	}

	log.Info("tenant schema provisioned")
	return nil
}
