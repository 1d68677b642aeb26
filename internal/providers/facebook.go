package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"golang.org/x/oauth2"
)

const facebookFields = "id,email,first_name,last_name,picture"

// Facebook resolves a user access token through the Graph API /me endpoint.
type Facebook struct {
	graphURL string
	base     *http.Client
}

func NewFacebook(graphURL string, base *http.Client) *Facebook {
	if base == nil {
		base = http.DefaultClient
	}
	return &Facebook{graphURL: strings.TrimRight(graphURL, "/"), base: base}
}

func (f *Facebook) Provider() models.Provider { return models.ProviderFacebook }

type facebookMe struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (f *Facebook) VerifyToken(ctx context.Context, token string) (*Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	var me facebookMe
	if err := getJSON(ctx, client, f.graphURL+"/me?fields="+url.QueryEscape(facebookFields), &me); err != nil {
		return nil, err
	}

	p := &Profile{
		ProviderID: me.ID,
		Email:      me.Email,
		FirstName:  me.FirstName,
		LastName:   me.LastName,
	}
	if u := me.Picture.Data.URL; u != "" {
		p.Avatar = &u
	}
	return p, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		// *url.Error prints the full URL, which may carry the access token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("call graph api %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}
