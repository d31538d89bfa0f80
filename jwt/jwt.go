package jwt

import (
	"OnlineStore/models"
	"crypto/rsa"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"os"
	"time"
)

var ErrTokenRevoked = errors.New("jwt: token已登出或不存在")

// Claims 為驗證通過後從token取出的身分資料
type Claims struct {
	UserID    uint
	IsAdmin   bool
	ExpiresAt time.Time
}

// Manager 以RS256簽發與驗證登入token
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewManager 讀取PEM格式的金鑰檔
func NewManager(privateKeyPath, publicKeyPath string, ttl time.Duration) (*Manager, error) {
	privateKey, err := loadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("讀取私鑰失敗: %w", err)
	}
	publicKey, err := loadPublicKey(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("讀取公鑰失敗: %w", err)
	}
	return NewManagerFromKeys(privateKey, publicKey, ttl), nil
}

func NewManagerFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		privateKey: privateKey,
		publicKey:  publicKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// 讀取私鑰
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
}

// 讀取公鑰
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(keyBytes)
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// GenerateToken 生成JWT Token，回傳token與到期時間
func (m *Manager) GenerateToken(userID uint, isAdmin bool) (string, time.Time, error) {
	expiresAt := m.now().Add(m.ttl)

	token := jwt.New(jwt.SigningMethodRS256)
	claims := token.Claims.(jwt.MapClaims)
	claims["userID"] = userID
	claims["isAdmin"] = isAdmin
	claims["exp"] = expiresAt.Unix()
	//同一秒內重複登入也要產生不同的token
	claims["jti"] = uuid.NewString()

	tokenString, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken 只驗證簽章與到期時間，不查資料庫
func (m *Manager) ParseToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return m.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, jwt.ErrTokenSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	userID, ok := claims["userID"].(float64)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	isAdmin, _ := claims["isAdmin"].(bool)

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return Claims{UserID: uint(userID), IsAdmin: isAdmin, ExpiresAt: expiresAt}, nil
}

// VerifyToken 驗證JWT Token，並確認資料庫中的登入紀錄仍存在
func (m *Manager) VerifyToken(tokenString string, db *gorm.DB) (Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}

	//從資料庫檢查Token是否刪除
	var loginToken models.LoginToken
	err = db.Where("token = ? AND user_id = ?", tokenString, claims.UserID).First(&loginToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Claims{}, ErrTokenRevoked
	}
	if err != nil {
		return Claims{}, err
	}

	return claims, nil
}
