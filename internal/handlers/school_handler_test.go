package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestParseFilter(t *testing.T) {
	c, _ := testContext("/schools?search=abc&is_active=false&setup_completed=1&page=3&page_size=500")

	filter, ok := parseFilter(c)
	require.True(t, ok)
	assert.Equal(t, "abc", filter.Search)
	require.NotNil(t, filter.IsActive)
	assert.False(t, *filter.IsActive)
	require.NotNil(t, filter.SetupCompleted)
	assert.True(t, *filter.SetupCompleted)
	assert.Equal(t, 3, filter.Page)
	assert.Equal(t, 100, filter.PageSize)
}

func TestParseFilter_Defaults(t *testing.T) {
	c, _ := testContext("/schools")

	filter, ok := parseFilter(c)
	require.True(t, ok)
	assert.Nil(t, filter.IsActive)
	assert.Nil(t, filter.SetupCompleted)
	assert.Equal(t, 1, filter.Page)
	assert.Equal(t, 10, filter.PageSize)
}

func TestParseFilter_Invalid(t *testing.T) {
	c, w := testContext("/schools?setup_completed=yes")

	_, ok := parseFilter(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid setup_completed value: must be true or false"}`, w.Body.String())
}

func TestParseID(t *testing.T) {
	c, w := testContext("/schools/abc")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	_, ok := parseID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, _ = testContext("/schools/7")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	id, ok := parseID(c)
	require.True(t, ok)
	assert.Equal(t, uint(7), id)
}

func TestNumberValue(t *testing.T) {
	v, err := numberValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	n := json.Number("1987")
	v, err = numberValue(&n)
	require.NoError(t, err)
	assert.Equal(t, 1987, *v)

	bad := json.Number("19.5")
	_, err = numberValue(&bad)
	assert.Error(t, err)
}

func TestSchoolHandler_AppURL(t *testing.T) {
	h := NewSchoolHandler(nil, nil, "myapp.com", "neondb")
	assert.Equal(t, "https://abc.myapp.com", h.appURL("abc"))
}
