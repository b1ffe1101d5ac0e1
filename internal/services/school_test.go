package services

import (
	"context"
	"fmt"
	"math"
	"testing"

	"schoolhub/internal/models"
	apperrors "schoolhub/pkg/errors"
	"schoolhub/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchoolService_Create_Normalizes(t *testing.T) {
	svc, _ := newTestSchoolService(t)

	school, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "ABC", school.Code)
	assert.Equal(t, "abc", school.Subdomain)
	assert.Equal(t, "school_abc_db", school.DBName)
	assert.Equal(t, "tenant_abc", school.SchemaName)
	assert.Equal(t, 5432, school.DBPort)
	assert.True(t, school.IsActive)
	assert.False(t, school.SetupCompleted)
}

func TestSchoolService_Create_EncryptsPassword(t *testing.T) {
	svc, db := newTestSchoolService(t)

	school, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	var stored models.School
	require.NoError(t, db.First(&stored, school.ID).Error)
	assert.NotEqual(t, "p", stored.DBPassword)

	req, err := svc.ConnectionFor(&stored)
	require.NoError(t, err)
	assert.Equal(t, "p", req.Password)
	assert.Equal(t, "tenant_abc", req.SchemaName)
}

func TestSchoolService_Create_RequiredFields(t *testing.T) {
	svc, _ := newTestSchoolService(t)

	fields := map[string]func(*CreateSchoolInput){
		"code":      func(in *CreateSchoolInput) { in.Code = "" },
		"name":      func(in *CreateSchoolInput) { in.Name = "  " },
		"subdomain": func(in *CreateSchoolInput) { in.Subdomain = "" },
		"host":      func(in *CreateSchoolInput) { in.DBHost = "" },
		"username":  func(in *CreateSchoolInput) { in.DBUsername = "" },
		"password":  func(in *CreateSchoolInput) { in.DBPassword = "" },
	}
	for name, mutate := range fields {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)

			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
			assert.Equal(t, "Code, name, subdomain, and database credentials are required", err.Error())
		})
	}
}

func TestSchoolService_Create_SchemaName(t *testing.T) {
	svc, _ := newTestSchoolService(t)

	for _, name := range []string{"", "1abc", "bad-name", "pg_catalog", "public", `x"; DROP SCHEMA public; --`} {
		in := validInput()
		in.SchemaName = name
		_, err := svc.Create(context.Background(), in)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "schema %q", name)
	}
}

func TestSchoolService_Create_Conflicts(t *testing.T) {
	svc, db := newTestSchoolService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	sameCode := validInput()
	sameCode.Code = "AbC"
	sameCode.Subdomain = "other"
	sameCode.SchemaName = "tenant_other"
	_, err = svc.Create(ctx, sameCode)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "School code already exists")

	sameSubdomain := validInput()
	sameSubdomain.Code = "OTHER"
	sameSubdomain.Subdomain = "aBc"
	sameSubdomain.SchemaName = "tenant_other"
	_, err = svc.Create(ctx, sameSubdomain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subdomain already exists")

	sameSchema := validInput()
	sameSchema.Code = "OTHER"
	sameSchema.Subdomain = "other"
	_, err = svc.Create(ctx, sameSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Schema name already exists")

	var count int64
	require.NoError(t, db.Model(&models.School{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSchoolService_Create_UniqueIndex(t *testing.T) {
	svc, db := newTestSchoolService(t)

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	// 绕过应用层检查，唯一索引仍然生效
	dup := &models.School{
		Code: "ABC", Name: "dup", Subdomain: "dup", DBName: "school_dup_db",
		DBHost: "h", DBPort: 5432, DBUsername: "u", DBPassword: "x", SchemaName: "tenant_dup",
	}
	assert.Error(t, db.Create(dup).Error)
}

func TestSchoolService_Lookups(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	byCode, err := svc.GetByCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	bySub, err := svc.GetBySubdomain(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySub.ID)

	_, err = svc.GetByID(ctx, created.ID+100)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Equal(t, "School not found", err.Error())

	_, err = svc.GetByCode(ctx, "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func seedSchools(t *testing.T, svc *SchoolService, n int) []*models.School {
	t.Helper()
	schools := make([]*models.School, 0, n)
	for i := 0; i < n; i++ {
		in := validInput()
		in.Code = fmt.Sprintf("S%02d", i)
		in.Subdomain = fmt.Sprintf("school%02d", i)
		in.SchemaName = fmt.Sprintf("tenant_%02d", i)
		in.Name = fmt.Sprintf("School %02d", i)
		school, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		schools = append(schools, school)
	}
	return schools
}

func TestSchoolService_List_Pagination(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	seedSchools(t, svc, 12)

	page1, total, err := svc.List(ctx, ListFilter{Page: 1, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page1, 5)
	// 最新创建的在前
	assert.Equal(t, "S11", page1[0].Code)

	page3, _, err := svc.List(ctx, ListFilter{Page: 3, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, page3, 2)
	assert.Equal(t, "S00", page3[1].Code)
}

func TestSchoolService_List_HugePageIsEmpty(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	seedSchools(t, svc, 12)

	params := pagination.NewPageParams("9223372036854775807", "10")
	rows, total, err := svc.List(context.Background(), ListFilter{Page: params.Page, PageSize: params.PageSize})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Empty(t, rows)

	// 未经规整的页码同样不能退回第一页
	rows, _, err = svc.List(context.Background(), ListFilter{Page: math.MaxInt, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSchoolService_List_Filters(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	schools := seedSchools(t, svc, 4)

	_, err := svc.SetActive(ctx, schools[0].ID, false)
	require.NoError(t, err)
	require.NoError(t, svc.MarkProvisioned(ctx, schools[1].ID))

	inactive := false
	rows, total, err := svc.List(ctx, ListFilter{IsActive: &inactive, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, schools[0].ID, rows[0].ID)

	done := true
	rows, total, err = svc.List(ctx, ListFilter{SetupCompleted: &done, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, schools[1].ID, rows[0].ID)

	rows, total, err = svc.List(ctx, ListFilter{Search: "SCHOOL02", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "S02", rows[0].Code)
}

func TestSchoolService_List_SearchEscapesWildcards(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	seedSchools(t, svc, 3)

	_, total, err := svc.List(context.Background(), ListFilter{Search: "%", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestSchoolService_Update(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	school, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	name := "Renamed"
	principal := "Dr. Who"
	year := 1999
	updated, err := svc.Update(ctx, school.ID, SchoolUpdate{Name: &name, PrincipalName: &principal, EstablishedYear: &year}, true)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "Dr. Who", updated.PrincipalName)
	require.NotNil(t, updated.EstablishedYear)
	assert.Equal(t, 1999, *updated.EstablishedYear)

	// 开通相关字段不受影响
	assert.Equal(t, school.Code, updated.Code)
	assert.Equal(t, school.DBName, updated.DBName)
	assert.Equal(t, school.SetupCompleted, updated.SetupCompleted)
}

func TestSchoolService_Update_Empty(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	school, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, school.ID, SchoolUpdate{}, true)
	require.Error(t, err)
	assert.Equal(t, "No fields to update", err.Error())

	unchanged, err := svc.Update(ctx, school.ID, SchoolUpdate{}, false)
	require.NoError(t, err)
	assert.Equal(t, school.Name, unchanged.Name)

	_, err = svc.Update(ctx, school.ID+1, SchoolUpdate{}, true)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSchoolService_ActiveFlag(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	school, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	toggled, err := svc.ToggleActive(ctx, school.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	view := toggled.View()
	assert.Equal(t, view.IsActive, view.IsActiveAlias)

	toggled, err = svc.ToggleActive(ctx, school.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	deactivated, err := svc.SetActive(ctx, school.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	assert.False(t, deactivated.View().IsActiveAlias)
}

func TestSchoolService_Delete(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	school, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, school.ID, false))
	soft, err := svc.GetByID(ctx, school.ID)
	require.NoError(t, err)
	assert.False(t, soft.IsActive)

	require.NoError(t, svc.Delete(ctx, school.ID, true))
	_, err = svc.GetByID(ctx, school.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	err = svc.Delete(ctx, school.ID, true)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSchoolService_ProvisionState(t *testing.T) {
	svc, _ := newTestSchoolService(t)
	ctx := context.Background()
	schools := seedSchools(t, svc, 3)

	require.NoError(t, svc.RecordProvisionFailure(ctx, schools[0].ID, "boom"))
	require.NoError(t, svc.RecordProvisionFailure(ctx, schools[0].ID, "boom again"))
	require.NoError(t, svc.MarkProvisioned(ctx, schools[1].ID))

	failed, err := svc.GetByID(ctx, schools[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, failed.ProvisionAttempts)
	assert.Equal(t, "boom again", failed.LastProvisionError)

	done, err := svc.GetByID(ctx, schools[1].ID)
	require.NoError(t, err)
	assert.True(t, done.SetupCompleted)
	assert.NotNil(t, done.ProvisionedAt)

	pending, err := svc.ListUnprovisioned(ctx, 5, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	// 达到上限的不再自动重试
	pending, err = svc.ListUnprovisioned(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, schools[2].ID, pending[0].ID)
}
