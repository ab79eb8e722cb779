package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Identity of an authenticated caller as reported by the auth service.
type Identity struct {
	SubjectID string         `json:"id"`
	Email     string         `json:"email"`
	Claims    map[string]any `json:"claims"`
}

func (i *Identity) IsAdmin() bool {
	return i.Claims["admin"] == true
}

// TokenVerifier validates a bearer credential. The production implementation
// calls the external auth service; tests inject their own. There is no
// runtime mock-token escape hatch.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// AuthService verifies tokens against the external auth microservice.
type AuthService struct {
	authURL string
	client  *http.Client
}

func NewAuthService(authURL string) *AuthService {
	return &AuthService{
		authURL: authURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Verify asks the auth service who the token belongs to.
func (a *AuthService) Verify(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/current", a.authURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnauthorized
	}

	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return nil, err
	}
	if id.SubjectID == "" {
		return nil, ErrUnauthorized
	}
	return &id, nil
}
