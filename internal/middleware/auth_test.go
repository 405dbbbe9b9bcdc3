package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/repositories"
)

func authRouter(repo *mocks.MockUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(repo))
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return router
}

func TestAuthMissingHeader(t *testing.T) {
	repo := new(mocks.MockUserRepo)
	w := httptest.NewRecorder()
	authRouter(repo).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthWrongScheme(t *testing.T) {
	repo := new(mocks.MockUserRepo)
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcg==")

	w := httptest.NewRecorder()
	authRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthUnknownUser(t *testing.T) {
	repo := new(mocks.MockUserRepo)
	repo.On("GetUser", mock.Anything, "ghost").Return(models.Peer{}, repositories.ErrUserNotFound)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer ghost")

	w := httptest.NewRecorder()
	authRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthValidToken(t *testing.T) {
	repo := new(mocks.MockUserRepo)
	repo.On("GetUser", mock.Anything, "u1").Return(models.Peer{ID: "u1", Name: "Alice"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer u1")

	w := httptest.NewRecorder()
	authRouter(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}
