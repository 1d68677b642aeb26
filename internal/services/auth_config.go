package services

import "time"

// AuthConfig is fixed at construction and shared by the orchestrator and
// the token manager.
type AuthConfig struct {
	Secret       []byte
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	BcryptCost   int
	StoreTimeout time.Duration
}
