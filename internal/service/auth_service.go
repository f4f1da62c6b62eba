package service

import (
	"context"
	"time"

	"despensa/internal/config"
	"despensa/internal/dto"
	"despensa/internal/model"
	"despensa/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.UsuarioRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.UsuarioRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, ErrCredencialesInvalidas
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredencialesInvalidas
	}

	accessToken, err := s.generateToken(user, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   s.cfg.JWTExpirationHours * 3600,
		User: dto.UsuarioResponse{
			ID:                user.ID.String(),
			Username:          user.Username,
			Nombre:            user.Nombre,
			Rol:               user.Rol,
			SucursalID:        uuidPtrToString(user.SucursalID),
			PuedeForzarEstado: s.cfg.PuedeForzarEstado(user.Rol),
		},
	}, nil
}

func (s *authService) generateToken(user *model.Usuario, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":             user.ID.String(),
		"username":            user.Username,
		"rol":                 user.Rol,
		"sucursal_id":         uuidPtrToString(user.SucursalID),
		"puede_forzar_estado": s.cfg.PuedeForzarEstado(user.Rol),
		"exp":                 time.Now().Add(duration).Unix(),
		"iat":                 time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
