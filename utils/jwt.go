package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mailpilot/config"
	"mailpilot/models"
)

type Claims struct {
	UserID       uint `json:"user_id"`
	TokenVersion int  `json:"token_version"`
	jwt.RegisteredClaims
}

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// GenerateJWTToken issues an access/refresh token pair. The token carries the
// user's token version so a password change invalidates everything issued
// before it.
func GenerateJWTToken(user *models.User) (string, string, error) {
	now := time.Now()

	accessClaims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).
		SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).
		SignedString([]byte(config.AppConfig.JWTRefreshSecret))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ParseJWTToken validates an access token.
func ParseJWTToken(tokenString string) (*Claims, error) {
	return parseWithSecret(tokenString, config.AppConfig.JWTSecret)
}

// ParseRefreshToken validates a refresh token.
func ParseRefreshToken(tokenString string) (*Claims, error) {
	return parseWithSecret(tokenString, config.AppConfig.JWTRefreshSecret)
}

func parseWithSecret(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// hashToken derives the storage key for a refresh token. Only the hash is
// persisted, never the token itself.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueTokenPair generates an access/refresh pair and records the refresh
// token so it can be revoked individually.
func IssueTokenPair(user *models.User) (string, string, error) {
	accessToken, refreshToken, err := GenerateJWTToken(user)
	if err != nil {
		return "", "", err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		Token:     hashToken(refreshToken),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := config.DB.Create(&record).Error; err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// RefreshTokens exchanges a valid refresh token for a fresh pair. Refresh
// tokens are single-use: the presented one is revoked and a new one issued.
func RefreshTokens(refreshToken string) (string, string, error) {
	claims, err := ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", err
	}

	var stored models.RefreshToken
	if err := config.DB.Where("token = ? AND revoked = ? AND expires_at > ?",
		hashToken(refreshToken), false, time.Now()).First(&stored).Error; err != nil {
		return "", "", errors.New("refresh token revoked")
	}

	var user models.User
	if err := config.DB.First(&user, claims.UserID).Error; err != nil {
		return "", "", errors.New("user not found")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", "", errors.New("refresh token revoked")
	}

	if err := config.DB.Model(&stored).Update("revoked", true).Error; err != nil {
		return "", "", err
	}

	return IssueTokenPair(&user)
}

// RevokeRefreshTokens invalidates every outstanding refresh token for the
// user.
func RevokeRefreshTokens(userID uint) error {
	return config.DB.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
