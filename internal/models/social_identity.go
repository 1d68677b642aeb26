package models

import (
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderFacebook  Provider = "facebook"
	ProviderApple     Provider = "apple"
	ProviderInstagram Provider = "instagram"
	ProviderEmail     Provider = "email"
)

// ParseProvider maps a wire value onto a known provider.
func ParseProvider(s string) (Provider, bool) {
	switch p := Provider(s); p {
	case ProviderGoogle, ProviderFacebook, ProviderApple, ProviderInstagram, ProviderEmail:
		return p, true
	}
	return "", false
}

// SocialIdentity links one external provider identity to exactly one Account.
// (provider, provider_id) is globally unique and an account links each
// provider at most once.
type SocialIdentity struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Provider   Provider  `gorm:"size:20;not null;uniqueIndex:idx_social_provider_subject;uniqueIndex:idx_social_account_provider" json:"provider"`
	ProviderID string    `gorm:"size:255;not null;uniqueIndex:idx_social_provider_subject" json:"provider_id"`
	AccountID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_social_account_provider" json:"account_id"`
	CreatedAt  time.Time `json:"created_at"`
}
