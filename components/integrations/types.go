// Package integrations manages the ad-platform accounts connected to the
// backend and keeps a cached read model of them.
package integrations

import (
	"strings"
	"time"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

// Platform is the normalized ad platform of an account.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformGoogle    Platform = "google"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformOther     Platform = "other"
)

// Label is the display name used when creating accounts on p.
func (p Platform) Label() string {
	switch p {
	case PlatformFacebook:
		return "Facebook Ads"
	case PlatformGoogle:
		return "Google Ads"
	case PlatformInstagram:
		return "Instagram"
	case PlatformLinkedIn:
		return "LinkedIn Ads"
	default:
		return "Other"
	}
}

// ParsePlatform maps the backend `tipo` and free-text `plataforma` to a
// Platform. Meta accounts are reported as facebook.
func ParsePlatform(kind, label string) Platform {
	for _, candidate := range []string{kind, label} {
		value := strings.ToLower(strings.TrimSpace(candidate))
		switch {
		case value == "":
			continue
		case strings.Contains(value, "facebook"), strings.Contains(value, "meta"):
			return PlatformFacebook
		case strings.Contains(value, "google"):
			return PlatformGoogle
		case strings.Contains(value, "instagram"):
			return PlatformInstagram
		case strings.Contains(value, "linkedin"):
			return PlatformLinkedIn
		}
	}
	return PlatformOther
}

// ConnectedAccount is an account linked to the user's workspace.
type ConnectedAccount struct {
	ID                int       `json:"id"`
	Platform          Platform  `json:"platform"`
	PlatformLabel     string    `json:"platform_label"`
	AccountExternalID string    `json:"account_external_id"`
	DisplayName       string    `json:"display_name"`
	ConnectedAt       time.Time `json:"connected_at"`
	IsActive          bool      `json:"is_active"`
	Token             string    `json:"-"`
}

// FromBackend maps the backend wire record.
func FromBackend(a backend.Account) ConnectedAccount {
	return ConnectedAccount{
		ID:                a.ID,
		Platform:          ParsePlatform(a.Type, a.Platform),
		PlatformLabel:     a.Platform,
		AccountExternalID: a.ExternalID,
		DisplayName:       a.Name,
		ConnectedAt:       parseConnectedAt(a.ConnectedAt),
		IsActive:          a.Active,
		Token:             a.Token,
	}
}

func parseConnectedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ConnectInput creates an account manually.
type ConnectInput struct {
	Platform          Platform `json:"platform" validate:"required,oneof=facebook google instagram linkedin other"`
	PlatformLabel     string   `json:"platform_label" validate:"max=60"`
	AccountExternalID string   `json:"account_external_id" validate:"required,max=120"`
	DisplayName       string   `json:"display_name" validate:"required,max=120"`
	Token             string   `json:"token"`
	Active            bool     `json:"is_active"`
}

func (in ConnectInput) toBackend() backend.AccountInput {
	label := strings.TrimSpace(in.PlatformLabel)
	if label == "" {
		label = in.Platform.Label()
	}
	return backend.AccountInput{
		Platform:   label,
		Type:       string(in.Platform),
		Token:      in.Token,
		ExternalID: strings.TrimSpace(in.AccountExternalID),
		Name:       strings.TrimSpace(in.DisplayName),
		Active:     in.Active,
	}
}

// User is a user who completed the Facebook flow.
type User struct {
	FacebookID string `json:"facebook_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
}
