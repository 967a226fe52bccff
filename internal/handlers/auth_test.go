package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func authRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.POST("/auth/register", Register(db))
	router.POST("/auth/login", Login(db))
	return router
}

func TestRegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupTestDB(t)
	router := authRouter(db)

	register := `{"name":"Alice","email":"alice@campus.edu","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(register))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	login := `{"email":"alice@campus.edu","password":"secret123"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(login))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Token == "" {
		t.Error("expected a token in the login response")
	}
	if body.User.Email != "alice@campus.edu" {
		t.Errorf("unexpected user in response: %+v", body.User)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	router := authRouter(db)

	register := `{"name":"Alice","email":"alice@campus.edu","password":"secret123"}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(register))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != want {
			t.Fatalf("attempt %d: expected status %d, got %d: %s", i+1, want, w.Code, w.Body.String())
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	router := authRouter(db)

	register := `{"name":"Alice","email":"alice@campus.edu","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(register))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	login := `{"email":"alice@campus.edu","password":"wrong"}`
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(login))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}
