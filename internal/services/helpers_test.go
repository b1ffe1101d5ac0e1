package services

import (
	"context"
	"sync"
	"testing"

	"schoolhub/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 内存sqlite，结构与控制面数据库一致
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接是独立的数据库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Admin{}, &models.School{}, &models.ProvisionLog{}))
	return db
}

func newTestSchoolService(t *testing.T) (*SchoolService, *gorm.DB) {
	db := newTestDB(t)
	return NewSchoolService(db, NewSecretCipher("0123456789abcdef0123456789abcdef"), 5432), db
}

func validInput() CreateSchoolInput {
	return CreateSchoolInput{
		Code:       "abc",
		Name:       "X",
		Subdomain:  "ABC",
		DBHost:     "h",
		DBUsername: "u",
		DBPassword: "p",
		SchemaName: "tenant_abc",
	}
}

// fakeProvisioner 记录调用，返回预设错误
type fakeProvisioner struct {
	mu    sync.Mutex
	err   error
	calls []ProvisionRequest
}

func (f *fakeProvisioner) Provision(_ context.Context, req ProvisionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.err
}

func (f *fakeProvisioner) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProvisioner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
