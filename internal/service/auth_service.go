package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"mango/internal/model/auth"
	"mango/internal/pkg/id"
	"mango/internal/pkg/jwt"
	"mango/internal/pkg/password"
	authRepo "mango/internal/repository/auth"
)

var (
	ErrUserNotFound      = errors.New("usuário não encontrado")
	ErrUserAlreadyExists = errors.New("usuário já existe")
	ErrEmailTaken        = errors.New("email já registrado")
	ErrInvalidPassword   = errors.New("senha incorreta")
	ErrUserBanned        = errors.New("usuário bloqueado")
	ErrInvalidToken      = errors.New("token inválido")
	ErrExpiredToken      = errors.New("token expirado")
)

// AuthService 认证服务
type AuthService struct {
	userRepo         *authRepo.UserRepo
	refreshTokenRepo *authRepo.RefreshTokenRepo
	jwt              *jwt.JWT
	refreshExpiry    time.Duration
}

// NewAuthService 创建认证服务
func NewAuthService(
	userRepo *authRepo.UserRepo,
	refreshTokenRepo *authRepo.RefreshTokenRepo,
	jwtSecret string,
	accessTokenExpiry time.Duration,
	refreshTokenExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwt:              jwt.NewJWT(jwtSecret, accessTokenExpiry),
		refreshExpiry:    refreshTokenExpiry,
	}
}

// RegisterResult 注册结果
type RegisterResult struct {
	UserID   string
	Username string
}

// Register 用户注册
// 注册即激活，直接可用
func (s *AuthService) Register(ctx context.Context, username, email, pwd, nickname string) (*RegisterResult, error) {
	existing, _ := s.userRepo.FindByUsername(ctx, username)
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	existing, _ = s.userRepo.FindByEmail(ctx, email)
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := password.Hash(pwd)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash password")
		return nil, errors.New("falha ao processar a senha")
	}

	user := &auth.User{
		ID:       id.New(),
		Username: username,
		Email:    email,
		Password: hashedPassword,
		Role:     auth.RoleUser,
		Status:   auth.UserStatusActive,
	}

	if nickname != "" {
		user.Profile = &auth.UserProfile{
			Nickname: nickname,
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		log.Error().Err(err).Msg("failed to create user")
		return nil, errors.New("falha ao criar usuário")
	}

	return &RegisterResult{
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	TokenType    string
	User         *auth.User
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, username, pwd string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if !password.Verify(pwd, user.Password) {
		return nil, ErrInvalidPassword
	}

	if user.Status == auth.UserStatusBanned {
		return nil, ErrUserBanned
	}

	accessToken, err := s.jwt.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		log.Error().Err(err).Msg("failed to generate access token")
		return nil, errors.New("falha ao gerar token")
	}

	refreshTokenValue := jwt.GenerateRefreshToken()
	refreshToken := &auth.RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		Token:     refreshTokenValue,
		ExpiresAt: time.Now().Add(s.refreshExpiry),
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		log.Error().Err(err).Msg("failed to create refresh token")
		return nil, errors.New("falha ao criar refresh token")
	}

	// 不影响登录流程，只记录警告
	if err := s.userRepo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		log.Warn().Err(err).Msg("failed to update last login time")
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenValue,
		ExpiresIn:    int(s.jwt.GetExpiration().Seconds()),
		TokenType:    "Bearer",
		User:         user,
	}, nil
}

// RefreshTokenResult 刷新Token结果
type RefreshTokenResult struct {
	AccessToken string
	ExpiresIn   int
	TokenType   string
}

// RefreshToken 刷新Access Token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenValue string) (*RefreshTokenResult, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(ctx, refreshTokenValue)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if refreshToken.IsExpired() {
		_ = s.refreshTokenRepo.DeleteByToken(ctx, refreshTokenValue)
		return nil, ErrExpiredToken
	}

	user, err := s.userRepo.FindByID(ctx, refreshToken.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if user.Status == auth.UserStatusBanned {
		return nil, ErrUserBanned
	}

	accessToken, err := s.jwt.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		log.Error().Err(err).Msg("failed to generate access token")
		return nil, errors.New("falha ao gerar token")
	}

	return &RefreshTokenResult{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwt.GetExpiration().Seconds()),
		TokenType:   "Bearer",
	}, nil
}

// Logout 退出登录
func (s *AuthService) Logout(ctx context.Context, refreshTokenValue string) error {
	return s.refreshTokenRepo.DeleteByToken(ctx, refreshTokenValue)
}

// GetUserByID 根据ID获取用户信息
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*auth.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
