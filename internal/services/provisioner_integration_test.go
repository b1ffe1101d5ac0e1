//go:build integration

package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"schoolhub/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 需要可用的 postgres：
// TEST_PG_HOST TEST_PG_PORT TEST_PG_USER TEST_PG_PASSWORD TEST_PG_DB
func integrationRequest(t *testing.T) (ProvisionRequest, string) {
	host := os.Getenv("TEST_PG_HOST")
	if host == "" {
		t.Skip("TEST_PG_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_PG_PORT"))
	dbName := os.Getenv("TEST_PG_DB")
	if dbName == "" {
		dbName = "postgres"
	}
	return ProvisionRequest{
		SchemaName: fmt.Sprintf("it_tenant_%d", time.Now().UnixNano()),
		Host:       host,
		Port:       port,
		Username:   os.Getenv("TEST_PG_USER"),
		Password:   os.Getenv("TEST_PG_PASSWORD"),
	}, dbName
}

func TestTenantProvisioner_Idempotent(t *testing.T) {
	req, dbName := integrationRequest(t)
	p := NewTenantProvisioner(dbName, "disable", 30*time.Second, nil)
	ctx := context.Background()

	require.NoError(t, p.Provision(ctx, req))

	db, err := gorm.Open(postgres.Open(p.dsn(req)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	t.Cleanup(func() {
		db.Exec("DROP SCHEMA IF EXISTS " + pq.QuoteIdentifier(req.SchemaName) + " CASCADE")
	})

	table := req.SchemaName + ".students"
	require.NoError(t, db.Table(table).Create(&models.Student{Name: "Ada", Class: "5A"}).Error)

	// 第二次开通不报错、不重复建表、不丢数据
	require.NoError(t, p.Provision(ctx, req))

	var tables []string
	require.NoError(t, db.Raw(
		"SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name",
		req.SchemaName,
	).Scan(&tables).Error)
	assert.Equal(t, []string{"students", "teachers"}, tables)

	var count int64
	require.NoError(t, db.Table(table).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTenantProvisioner_BadCredentials(t *testing.T) {
	req, dbName := integrationRequest(t)
	req.Password = "definitely-wrong-password"
	p := NewTenantProvisioner(dbName, "disable", 10*time.Second, nil)

	err := p.Provision(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database setup failed:")
}
