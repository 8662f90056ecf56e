package service

import (
	"context"
	"strings"
	"time"

	"github.com/evonota/evonota/internal/docstore"
	"github.com/evonota/evonota/internal/model"
	appErr "github.com/evonota/evonota/internal/pkg/errors"
	"github.com/evonota/evonota/internal/pkg/jwt"
	"github.com/evonota/evonota/internal/pkg/password"
)

type AuthService struct {
	docs      docstore.Store
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(docs docstore.Store, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{docs: docs, jwtSecret: secret, jwtTTL: ttl}
}

type RegisterRequest struct {
	OrgID    string `json:"org_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Cedula   string `json:"cedula"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.Doctor, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || req.OrgID == "" {
		return nil, "", appErr.Wrapf(appErr.ErrInvalid, "org_id, email and password are required")
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	doctor := &model.Doctor{
		UID:          newID(),
		OrgID:        req.OrgID,
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Cedula:       strings.TrimSpace(req.Cedula),
		PasswordHash: hash,
		CreatedAt:    time.Now().Unix(),
	}
	if err := s.docs.CreateDoctor(ctx, doctor); err != nil {
		if appErr.IsConflict(err) {
			return nil, "", appErr.ErrConflict
		}
		return nil, "", err
	}
	token, err := jwt.GenerateToken(doctor.UID, doctor.Email, doctor.Name, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return doctor, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.Doctor, string, error) {
	doctor, err := s.docs.GetDoctorByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", appErr.ErrInvalidCredential
	}
	if err := password.Compare(doctor.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrInvalidCredential
	}
	token, err := jwt.GenerateToken(doctor.UID, doctor.Email, doctor.Name, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return doctor, token, nil
}
