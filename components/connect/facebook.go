package connect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

const (
	ProviderFacebook = "facebook"

	adAccountFields = "id,name,account_id,account_status,currency,business_name,business"
)

// FacebookConfig holds the Facebook app credentials and endpoints.
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURI string
	// GraphURL is the versioned Graph API base, e.g.
	// https://graph.facebook.com/v18.0.
	GraphURL   string
	DialogURL  string
	Scopes     []string
	HTTPClient *http.Client
}

// AdAccount is an entry of `me/adaccounts`.
type AdAccount struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AccountID     string `json:"account_id"`
	AccountStatus int    `json:"account_status"`
	Currency      string `json:"currency"`
	BusinessName  string `json:"business_name"`
	Business      *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"business,omitempty"`
}

// FacebookProvider builds dialog URLs, exchanges codes and lists ad accounts.
type FacebookProvider struct {
	cfg    FacebookConfig
	oauth  oauth2.Config
	client *http.Client
}

// NewFacebookProvider validates cfg.
func NewFacebookProvider(cfg FacebookConfig) (*FacebookProvider, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("connect: facebook app id and secret are required")
	}
	if cfg.RedirectURI == "" {
		return nil, errors.New("connect: facebook redirect uri is required")
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.facebook.com/v18.0"
	}
	if cfg.DialogURL == "" {
		cfg.DialogURL = "https://www.facebook.com/v18.0/dialog/oauth"
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"ads_read", "ads_management"}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")
	return &FacebookProvider{
		cfg:    cfg,
		client: client,
		oauth: oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.DialogURL,
				TokenURL:  cfg.GraphURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}, nil
}

// Provider returns the coordinator config of the Facebook flow.
func (p *FacebookProvider) Provider(timeout time.Duration) ProviderConfig {
	return ProviderConfig{Name: ProviderFacebook, AuthURL: p.AuthURL, Timeout: timeout}
}

// AuthURL returns the login dialog URL carrying state.
func (p *FacebookProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(p.cfg.Scopes, ",")))
}

// Exchange trades an authorization code for a user access token.
func (p *FacebookProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) {
			return "", &OAuthProviderError{Provider: ProviderFacebook, Message: graphErrorMessage(retrieve.Body, retrieve.ErrorDescription)}
		}
		return "", fmt.Errorf("connect: exchange code: %w", err)
	}
	return token.AccessToken, nil
}

// AdAccounts lists the ad accounts the token can read.
func (p *FacebookProvider) AdAccounts(ctx context.Context, accessToken string) ([]AdAccount, error) {
	query := url.Values{}
	query.Set("fields", adAccountFields)
	query.Set("access_token", accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GraphURL+"/me/adaccounts?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect: build ad accounts request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect: list ad accounts: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Data  []AdAccount `json:"data"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("connect: decode ad accounts: %w", err)
	}
	if payload.Error != nil || resp.StatusCode >= http.StatusBadRequest {
		message := http.StatusText(resp.StatusCode)
		if payload.Error != nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}
		return nil, &OAuthProviderError{Provider: ProviderFacebook, Message: message}
	}
	return payload.Data, nil
}

// ImportRequest maps ad accounts to the backend import body. Accounts with
// status 1 are active.
func ImportRequest(accessToken string, accounts []AdAccount) backend.ImportRequest {
	out := backend.ImportRequest{
		AccessToken: accessToken,
		Accounts:    make([]backend.ImportedAccount, 0, len(accounts)),
	}
	for _, account := range accounts {
		imported := backend.ImportedAccount{
			Platform:   "Facebook Ads",
			Type:       ProviderFacebook,
			Token:      accessToken,
			ExternalID: account.AccountID,
			Name:       account.Name,
			Active:     account.AccountStatus == 1,
			Metadata: backend.ImportMetadata{
				Currency:     account.Currency,
				BusinessName: account.BusinessName,
			},
		}
		if account.Business != nil {
			imported.Metadata.BusinessID = account.Business.ID
		}
		out.Accounts = append(out.Accounts, imported)
	}
	return out
}

func graphErrorMessage(body []byte, fallback string) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if fallback != "" {
		return fallback
	}
	return "authorization failed"
}
