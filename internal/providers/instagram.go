package providers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
)

// Instagram resolves a user access token through the Instagram Graph API.
// The API returns no email, so the profile carries a deterministic
// placeholder address under placeholderDomain.
type Instagram struct {
	graphURL          string
	placeholderDomain string
	client            *http.Client
}

func NewInstagram(graphURL, placeholderDomain string, client *http.Client) *Instagram {
	if client == nil {
		client = http.DefaultClient
	}
	return &Instagram{
		graphURL:          strings.TrimRight(graphURL, "/"),
		placeholderDomain: placeholderDomain,
		client:            client,
	}
}

func (i *Instagram) Provider() models.Provider { return models.ProviderInstagram }

type instagramMe struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (i *Instagram) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	q := url.Values{}
	q.Set("fields", "id,username")
	q.Set("access_token", token)

	var me instagramMe
	if err := getJSON(ctx, i.client, i.graphURL+"/me?"+q.Encode(), &me); err != nil {
		return nil, err
	}
	if me.ID == "" {
		return nil, errors.New("graph api returned no user id")
	}

	return &Profile{
		ProviderID: me.ID,
		Email:      i.PlaceholderEmail(me.ID),
		FirstName:  me.Username,
	}, nil
}

// PlaceholderEmail is the synthetic address used for an Instagram user.
func (i *Instagram) PlaceholderEmail(providerID string) string {
	return "instagram_" + providerID + "@" + i.placeholderDomain
}
