package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"travelbook/internal/apperr"
	"travelbook/internal/auth"
	"travelbook/internal/envelope"
	"travelbook/internal/models"
	"travelbook/internal/store"
	"travelbook/internal/token"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=guest host"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *Handler) handleRegister(r *http.Request) (envelope.Response, error) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return envelope.Response{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = models.RoleGuest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return envelope.Response{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := h.store.CreateUser(r.Context(), store.CreateUserInput{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return envelope.Response{}, apperr.Conflict("Email is already registered")
		}
		return envelope.Response{}, fmt.Errorf("create user: %w", err)
	}

	raw, err := h.issue(user)
	if err != nil {
		return envelope.Response{}, err
	}
	return envelope.Created("Registration successful", authResponse{Token: raw, User: user}), nil
}

func (h *Handler) handleLogin(r *http.Request) (envelope.Response, error) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return envelope.Response{}, err
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return envelope.Response{}, apperr.Unauthorized(invalidCredentials)
		}
		return envelope.Response{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return envelope.Response{}, apperr.Unauthorized(invalidCredentials)
	}

	raw, err := h.issue(user)
	if err != nil {
		return envelope.Response{}, err
	}
	return envelope.Build(http.StatusOK, "Login successful", authResponse{Token: raw, User: user}), nil
}

func (h *Handler) handleMe(r *http.Request, id auth.Identity) (envelope.Response, error) {
	user, err := h.store.GetUser(r.Context(), id.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return envelope.Response{}, apperr.Unauthorized(auth.UnauthorizedMessage)
		}
		return envelope.Response{}, fmt.Errorf("load user: %w", err)
	}
	return envelope.OK(user), nil
}

func (h *Handler) issue(user models.User) (string, error) {
	raw, err := h.tokens.Issue(token.Claims{UserID: user.UserID, Email: user.Email, Role: user.Role})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return raw, nil
}
