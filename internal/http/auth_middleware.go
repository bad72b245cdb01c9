package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenTypeShelter 收容所员工 token 的 type 声明
const TokenTypeShelter = "shelter"

// Claims NGO 与收容所 token 共用的声明
type Claims struct {
	UserID        int64  `json:"user_id,omitempty"`
	Role          string `json:"role,omitempty"`
	Type          string `json:"type,omitempty"`
	ShelterUserID int64  `json:"shelter_user_id,omitempty"`
	ShelterID     int64  `json:"shelter_id,omitempty"`
	jwt.RegisteredClaims
}

// IsShelter 是否为收容所 token
func (c *Claims) IsShelter() bool { return c.Type == TokenTypeShelter }

// Actor 写入审计字段的操作人
func (c *Claims) Actor() *int64 {
	id := c.UserID
	if c.IsShelter() {
		id = c.ShelterUserID
	}
	if id == 0 {
		return nil
	}
	return &id
}

type ctxKey int

const (
	claimsKey ctxKey = iota
	requestIDKey
)

// ClaimsFromContext 取出已验证的声明
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// Authenticator HS256 token 校验
type Authenticator struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthenticator(secret string, logger *zap.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// SignToken 签发 token（测试及共享密钥的外部签发方使用）
func (a *Authenticator) SignToken(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

func (a *Authenticator) parse(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("no token provided")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request) (*Claims, bool) {
	claims, err := a.parse(r)
	if err != nil {
		if strings.Contains(err.Error(), "no token") {
			writeMsg(w, http.StatusUnauthorized, "No token provided")
		} else {
			a.logger.Debug("Token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			writeMsg(w, http.StatusUnauthorized, "Invalid or expired token")
		}
		return nil, false
	}
	return claims, true
}

// RequireNGO NGO 路由：任何非收容所 token
func (a *Authenticator) RequireNGO(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		if claims.IsShelter() {
			writeMsg(w, http.StatusForbidden, "Invalid token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireShelter 收容所路由：type=shelter 且带 shelter_id
func (a *Authenticator) RequireShelter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := a.authenticate(w, r)
		if !ok {
			return
		}
		if !claims.IsShelter() || claims.ShelterID <= 0 {
			a.logger.Info("Shelter auth failed: invalid token type", zap.String("path", r.URL.Path))
			writeMsg(w, http.StatusForbidden, "Invalid token type")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// RequireRole 角色校验，必须位于认证中间件之后
func RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeMsg(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				writeMsg(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next(w, r)
		}
	}
}
