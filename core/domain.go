package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the closed set of principal roles the storefront backend issues.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleShopOwner Role = "shop_owner"
)

// ParseRole normalizes a server-provided role string. Unknown values map to
// RoleCustomer so a new backend role never locks a user out of the catalog.
func ParseRole(value string) Role {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	switch Role(normalized) {
	case RoleCustomer, RoleAdmin, RoleShopOwner:
		return Role(normalized)
	default:
		return RoleCustomer
	}
}

// Identity is the server-sourced record describing the authenticated
// principal. It is owned exclusively by the Session; callers receive copies.
type Identity struct {
	ID          string
	Email       string
	Username    string
	FullName    string
	PhoneNumber string
	Role        Role
}

func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.FullName); name != "" {
		return name
	}
	if name := strings.TrimSpace(i.Username); name != "" {
		return name
	}
	return strings.TrimSpace(i.Email)
}

// Snapshot is the externally observable session state. Identity may be nil
// while authenticated (profile still loading or hydration degraded).
type Snapshot struct {
	Authenticated bool
	Loading       bool
	LastError     string
	Identity      *Identity
}

type LoginRequest struct {
	Email    string
	Password string
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("core: email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("core: password is required")
	}
	return nil
}

// LoginResult mirrors the login endpoint payload. User carries the minimal
// identity embedded in the response when the server provides one.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *Identity
}

type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	PhoneNumber string
}

func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return fmt.Errorf("core: username is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return fmt.Errorf("core: email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("core: password is required")
	}
	return nil
}

type RegisterResult struct {
	UserID           string
	VerifyEmailToken string
}

// flexID tolerates backends that serialize identifiers as either JSON numbers
// or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = flexID(value)
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = flexID(value.String())
	return nil
}

type identityPayload struct {
	ID          flexID `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

func (p identityPayload) toDomain() Identity {
	return Identity{
		ID:          string(p.ID),
		Email:       strings.TrimSpace(p.Email),
		Username:    strings.TrimSpace(p.Username),
		FullName:    strings.TrimSpace(p.FullName),
		PhoneNumber: strings.TrimSpace(p.PhoneNumber),
		Role:        ParseRole(p.Role),
	}
}

type loginPayload struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *identityPayload `json:"user"`
}

func (p loginPayload) toResult() LoginResult {
	result := LoginResult{
		AccessToken:  strings.TrimSpace(p.AccessToken),
		RefreshToken: strings.TrimSpace(p.RefreshToken),
	}
	if p.User != nil {
		identity := p.User.toDomain()
		result.User = &identity
	}
	return result
}

type registerPayload struct {
	UserID           flexID `json:"user_id"`
	VerifyEmailToken string `json:"verify_email_token"`
}

func (p registerPayload) toResult() RegisterResult {
	return RegisterResult{
		UserID:           string(p.UserID),
		VerifyEmailToken: strings.TrimSpace(p.VerifyEmailToken),
	}
}

type profileEnvelope struct {
	Data identityPayload `json:"data"`
}
