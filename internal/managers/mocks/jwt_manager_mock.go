package mocks

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"

	"github.com/verso-cms/server-verso/internal/schemas"
)

// MockJwtManager is a testify mock of the JWTMgr interface.
// It is used to simulate JWT operations in tests.
type MockJwtManager struct {
	mock.Mock
}

func (m *MockJwtManager) GenerateTokenPair(userId, email, role string, verified bool) (*schemas.TokenPairDTO, error) {
	args := m.Called(userId, email, role, verified)
	return args.Get(0).(*schemas.TokenPairDTO), args.Error(1)
}

func (m *MockJwtManager) ValidateAccessToken(tokenString string) (jwt.MapClaims, error) {
	args := m.Called(tokenString)
	return args.Get(0).(jwt.MapClaims), args.Error(1)
}

func (m *MockJwtManager) ValidateRefreshToken(tokenString string) (jwt.MapClaims, error) {
	args := m.Called(tokenString)
	return args.Get(0).(jwt.MapClaims), args.Error(1)
}

func (m *MockJwtManager) JWTMiddleware() gin.HandlerFunc {
	args := m.Called()
	return args.Get(0).(gin.HandlerFunc)
}
