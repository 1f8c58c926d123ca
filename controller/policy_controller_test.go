package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/gestore-cpu/gestione-doc-security/controller"
	doc_errors "github.com/gestore-cpu/gestione-doc-security/errors"
	logger "github.com/gestore-cpu/gestione-doc-security/logging"
	"github.com/gestore-cpu/gestione-doc-security/model"
	"github.com/gestore-cpu/gestione-doc-security/test/mock"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitTestLogger()
	m.Run()
}

// setupRouter builds a router with the auth middleware replaced by a stub
// that injects a fixed admin identity.
func setupRouter(register func(*gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	api := r.Group("/")
	api.Use(func(c *gin.Context) {
		c.Set("userID", "admin1")
		c.Set("userRole", string(model.RoleAdmin))
		c.Next()
	})
	register(api)
	return r
}

func TestPolicyController(t *testing.T) {
	mockPolicyService := new(mock.MockPolicyService)
	policyController := controller.NewPolicyController(mockPolicyService)
	router := setupRouter(policyController.RegisterRoutes)

	t.Run("CreatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", tmock.Anything, tmock.Anything, "admin1").
			Return(&model.AutoPolicy{ID: "p1", Name: "Blocca guest"}, nil).Once()

		body := strings.NewReader(`{"name":"Blocca guest","action":"deny","condition":"{\"field\":\"user_role\",\"operator\":\"equals\",\"value\":\"guest\"}"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var created model.AutoPolicy
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "p1", created.ID)
	})

	t.Run("CreatePolicy_Failure_MalformedCondition", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", tmock.Anything, tmock.Anything, "admin1").
			Return(nil, doc_errors.ErrMalformedCondition).Once()

		body := strings.NewReader(`{"name":"Rotta","action":"deny","condition":"not json"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("GetPolicy_Success", func(t *testing.T) {
		mockPolicyService.On("GetPolicy", tmock.Anything, "p1").
			Return(&model.AutoPolicy{ID: "p1", Name: "Blocca guest"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/p1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("GetPolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("GetPolicy", tmock.Anything, "missing").
			Return(nil, doc_errors.ErrPolicyNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ListPolicies_Success", func(t *testing.T) {
		mockPolicyService.On("ListPolicies", tmock.Anything, 10, 0).
			Return([]*model.AutoPolicy{{ID: "p1"}, {ID: "p2"}}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ActivatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("ActivatePolicy", tmock.Anything, "p1", "admin1").
			Return(&model.AutoPolicy{ID: "p1", Active: true}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies/p1/activate", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("DeactivatePolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("DeactivatePolicy", tmock.Anything, "missing", "admin1").
			Return(nil, doc_errors.ErrPolicyNotFound).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies/missing/deactivate", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("TogglePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("TogglePolicy", tmock.Anything, "p1", "admin1").
			Return(&model.AutoPolicy{ID: "p1", Active: false}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies/p1/toggle", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	mockPolicyService.AssertExpectations(t)
}
