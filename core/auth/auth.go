package auth

import (
	"fmt"
	"time"

	"sonata/config"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenLifetime       = 7 * 24 * time.Hour
	streamTokenLifetime = time.Hour

	streamTokenSubject = "audio-stream"
)

// Claims JWT 载荷
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// HashPassword 生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword 校验密码与哈希是否匹配
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken 签发用户 JWT
func GenerateToken(userID int64, username string) (string, error) {
	cfg := config.Load()
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并校验 JWT，返回载荷
func ParseToken(tokenString string) (*Claims, error) {
	cfg := config.Load()
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	// 音频流令牌只授权单曲读取，不能当会话令牌用
	if claims.Subject == streamTokenSubject {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// StreamClaims 音频流令牌载荷，只对单曲有效
type StreamClaims struct {
	UserID  int64  `json:"userId"`
	TrackID string `json:"trackId"`
	jwt.RegisteredClaims
}

// GenerateStreamToken 签发音频流短时令牌。<audio> 元素带不了请求头，
// 流地址改挂查询参数令牌。
func GenerateStreamToken(userID int64, trackID string) (string, error) {
	cfg := config.Load()
	now := time.Now()
	claims := &StreamClaims{
		UserID:  userID,
		TrackID: trackID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   streamTokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(streamTokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseStreamToken 解析并校验音频流令牌
func ParseStreamToken(tokenString string) (*StreamClaims, error) {
	cfg := config.Load()
	token, err := jwt.ParseWithClaims(tokenString, &StreamClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse stream token: %w", err)
	}
	claims, ok := token.Claims.(*StreamClaims)
	if !ok || !token.Valid || claims.Subject != streamTokenSubject || claims.TrackID == "" {
		return nil, fmt.Errorf("invalid stream token")
	}
	return claims, nil
}
