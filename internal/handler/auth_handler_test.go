package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/lumen-api/internal/middleware"
	"github.com/lumenlms/lumen-api/internal/models"
)

func TestAuthHandlerLoginInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Login(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLogoutWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]string{"refresh_token": "token"})
	req, _ := http.NewRequest(http.MethodPost, "/auth/logout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Logout(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMeEchoesClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "user@example.com", FullName: "Jane Doe", Role: models.RoleAdmin, TeamID: "team-a"})

	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.UserInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "u1", envelope.Data.ID)
	assert.Equal(t, models.RoleAdmin, envelope.Data.Role)
}
