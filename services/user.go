package services

import (
	"OnlineStore/access"
	"OnlineStore/apperr"
	"OnlineStore/jwt"
	"OnlineStore/models"
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultTel        = "13800000000"
	minUsernameLength = 3
	minPasswordLength = 6
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	telPattern      = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

type RegisterInput struct {
	Username string
	Password string
	Email    string
	Tel      string
}

// ProfileUpdate 只允許修改email與tel
type ProfileUpdate struct {
	Email *string
	Tel   *string
}

type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    uint      `json:"userID"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
}

type AdminStatus struct {
	UserID   uint   `json:"userID"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type UserService struct {
	db         *gorm.DB
	tokens     *jwt.Manager
	log        *slog.Logger
	bcryptCost int
}

func NewUserService(db *gorm.DB, tokens *jwt.Manager, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{db: db, tokens: tokens, log: log, bcryptCost: bcrypt.DefaultCost}
}

// Register 建立使用者並同時建立購物車
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Tel = strings.TrimSpace(input.Tel)

	if err := validateUsername(input.Username); err != nil {
		return models.User{}, err
	}
	if len(input.Password) < minPasswordLength {
		return models.User{}, apperr.Newf(apperr.KindInvalidArgument, "密碼長度至少%d個字元", minPasswordLength)
	}
	if input.Email == "" {
		input.Email = input.Username + "@example.com"
	} else if err := validateEmail(input.Email); err != nil {
		return models.User{}, err
	}
	if input.Tel == "" {
		input.Tel = defaultTel
	} else if err := validateTel(input.Tel); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return models.User{}, apperr.Internal(err, "密碼加密失敗")
	}

	user := models.User{
		Username: input.Username,
		Password: string(hash),
		Email:    input.Email,
		Tel:      input.Tel,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", input.Username, input.Email).
			Count(&count).
			Error
		if err != nil {
			return apperr.Internal(err, "查詢使用者失敗")
		}
		if count > 0 {
			return apperr.New(apperr.KindConflict, "使用者名稱或電子郵件已被註冊")
		}

		if err := tx.Create(&user).Error; err != nil {
			return apperr.Wrap(apperr.KindConflict, err, "使用者名稱或電子郵件已被註冊")
		}
		if err := tx.Create(&models.Cart{UserID: user.ID}).Error; err != nil {
			return apperr.Internal(err, "建立購物車失敗")
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	logFromCtx(ctx, s.log).Info("使用者註冊成功", "userID", user.ID, "username", user.Username)
	return user, nil
}

// Login 驗證帳密後簽發token並寫入登入紀錄
func (s *UserService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return LoginResult{}, apperr.Internal(err, "查詢使用者失敗")
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return LoginResult{}, apperr.New(apperr.KindUnauthenticated, "帳號或密碼錯誤")
	}

	return s.issueToken(ctx, user)
}

// Logout 刪除登入紀錄，token立即失效
func (s *UserService) Logout(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.LoginToken{}).Error
	if err != nil {
		return apperr.Internal(err, "登出失敗")
	}
	return nil
}

// Refresh 以目前的使用者資料重新簽發token，舊token同時失效
func (s *UserService) Refresh(ctx context.Context, oldToken string, caller access.Caller) (LoginResult, error) {
	user, err := s.findUser(s.db.WithContext(ctx), caller.ID)
	if err != nil {
		return LoginResult{}, err
	}
	result, err := s.issueToken(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Logout(ctx, oldToken); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

func (s *UserService) Me(ctx context.Context, caller access.Caller) (models.User, error) {
	return s.findUser(s.db.WithContext(ctx), caller.ID)
}

func (s *UserService) GetUser(ctx context.Context, userID uint, caller access.Caller) (models.User, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return models.User{}, err
	}
	return s.findUser(s.db.WithContext(ctx), userID)
}

func (s *UserService) ListUsers(ctx context.Context, page Page, search string, caller access.Caller) ([]models.User, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	var users []models.User
	if err := query.Order("id").Offset(page.Skip).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "查詢使用者列表失敗")
	}
	return users, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate, caller access.Caller) (models.User, error) {
	if err := access.RequireOwnerOrAdmin(userID, caller); err != nil {
		return models.User{}, err
	}

	changes := map[string]interface{}{}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if err := validateEmail(email); err != nil {
			return models.User{}, err
		}
		changes["email"] = email
	}
	if update.Tel != nil {
		tel := strings.TrimSpace(*update.Tel)
		if err := validateTel(tel); err != nil {
			return models.User{}, err
		}
		changes["tel"] = tel
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.findUser(tx, userID)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		if email, ok := changes["email"]; ok {
			var count int64
			err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error
			if err != nil {
				return apperr.Internal(err, "查詢使用者失敗")
			}
			if count > 0 {
				return apperr.New(apperr.KindConflict, "電子郵件已被使用")
			}
		}

		if err := tx.Model(&user).Updates(changes).Error; err != nil {
			return apperr.Internal(err, "更新個人資料失敗")
		}
		user, err = s.findUser(tx, userID)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) SetAdmin(ctx context.Context, userID uint, isAdmin bool, caller access.Caller) (AdminStatus, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return AdminStatus{}, err
	}

	db := s.db.WithContext(ctx)
	user, err := s.findUser(db, userID)
	if err != nil {
		return AdminStatus{}, err
	}
	if err := db.Model(&user).Update("is_admin", isAdmin).Error; err != nil {
		return AdminStatus{}, apperr.Internal(err, "更新管理員權限失敗")
	}

	logFromCtx(ctx, s.log).Info("管理員權限已更新", "userID", userID, "isAdmin", isAdmin, "by", caller.ID)
	return AdminStatus{UserID: user.ID, Username: user.Username, IsAdmin: isAdmin}, nil
}

func (s *UserService) AdminStatus(ctx context.Context, userID uint, caller access.Caller) (AdminStatus, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return AdminStatus{}, err
	}

	user, err := s.findUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return AdminStatus{}, err
	}
	return AdminStatus{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

func (s *UserService) issueToken(ctx context.Context, user models.User) (LoginResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		return LoginResult{}, apperr.Internal(err, "簽發token失敗")
	}

	loginToken := models.LoginToken{Token: token, ExpirationTime: expiresAt, UserID: user.ID}
	if err := s.db.WithContext(ctx).Create(&loginToken).Error; err != nil {
		return LoginResult{}, apperr.Internal(err, "儲存登入紀錄失敗")
	}

	return LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
	}, nil
}

func (s *UserService) findUser(db *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	err := db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, apperr.New(apperr.KindNotFound, "使用者不存在")
	}
	if err != nil {
		return user, apperr.Internal(err, "查詢使用者失敗")
	}
	return user, nil
}

func validateUsername(username string) error {
	if len(username) < minUsernameLength {
		return apperr.Newf(apperr.KindInvalidArgument, "使用者名稱至少%d個字元", minUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return apperr.New(apperr.KindInvalidArgument, "使用者名稱只能包含英文字母、數字與底線")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.New(apperr.KindInvalidArgument, "電子郵件格式錯誤")
	}
	return nil
}

func validateTel(tel string) error {
	if !telPattern.MatchString(tel) {
		return apperr.New(apperr.KindInvalidArgument, "手機號碼格式錯誤")
	}
	return nil
}
