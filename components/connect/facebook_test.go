package connect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v18.0/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Code expired","type":"OAuthException"}}`))
			return
		}
		assert.Equal(t, "app-id", r.Form.Get("client_id"))
		assert.Equal(t, "app-secret", r.Form.Get("client_secret"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "user-token",
			"token_type":   "bearer",
			"expires_in":   5183944,
		})
	})
	mux.HandleFunc("/v18.0/me/adaccounts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("access_token") != "user-token" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token."}}`))
			return
		}
		assert.Equal(t, adAccountFields, r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"data":[
			{"id":"act_1","name":"Loja","account_id":"1","account_status":1,"currency":"BRL","business_name":"Loja LTDA","business":{"id":"b1","name":"Loja"}},
			{"id":"act_2","name":"Antiga","account_id":"2","account_status":2,"currency":"USD"}
		]}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestFacebook(t *testing.T, graphURL string) *FacebookProvider {
	t.Helper()
	provider, err := NewFacebookProvider(FacebookConfig{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		RedirectURI: "http://app.local/oauth/callback",
		GraphURL:    graphURL,
	})
	require.NoError(t, err)
	return provider
}

func TestFacebookAuthURL(t *testing.T) {
	provider := newTestFacebook(t, "")
	raw := provider.AuthURL("signed-state")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.facebook.com", parsed.Host)
	assert.Equal(t, "/v18.0/dialog/oauth", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "app-id", q.Get("client_id"))
	assert.Equal(t, "http://app.local/oauth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "ads_read,ads_management", q.Get("scope"))
	assert.Equal(t, "signed-state", q.Get("state"))

	cfg := provider.Provider(0)
	assert.Equal(t, ProviderFacebook, cfg.Name)
	assert.Equal(t, raw, cfg.AuthURL("signed-state"))
}

func TestFacebookExchangeAndAccounts(t *testing.T) {
	server := newGraphServer(t)
	provider := newTestFacebook(t, server.URL+"/v18.0")
	ctx := context.Background()

	token, err := provider.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "user-token", token)

	accounts, err := provider.AdAccounts(ctx, token)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Loja", accounts[0].Name)
	require.NotNil(t, accounts[0].Business)
	assert.Equal(t, "b1", accounts[0].Business.ID)
	assert.Nil(t, accounts[1].Business)
}

func TestFacebookErrorsCarryProviderMessage(t *testing.T) {
	server := newGraphServer(t)
	provider := newTestFacebook(t, server.URL+"/v18.0")
	ctx := context.Background()

	_, err := provider.Exchange(ctx, "expired")
	var perr *OAuthProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Code expired", perr.Message)

	_, err = provider.AdAccounts(ctx, "wrong-token")
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "Invalid OAuth access token.", perr.Message)
}

func TestImportRequestMapping(t *testing.T) {
	accounts := []AdAccount{
		{AccountID: "1", Name: "Loja", AccountStatus: 1, Currency: "BRL", BusinessName: "Loja LTDA", Business: &struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}{ID: "b1", Name: "Loja"}},
		{AccountID: "2", Name: "Antiga", AccountStatus: 2},
	}
	req := ImportRequest("tok", accounts)

	assert.Equal(t, "tok", req.AccessToken)
	require.Len(t, req.Accounts, 2)
	first := req.Accounts[0]
	assert.Equal(t, "Facebook Ads", first.Platform)
	assert.Equal(t, "facebook", first.Type)
	assert.Equal(t, "1", first.ExternalID)
	assert.True(t, first.Active)
	assert.Equal(t, "BRL", first.Metadata.Currency)
	assert.Equal(t, "Loja LTDA", first.Metadata.BusinessName)
	assert.Equal(t, "b1", first.Metadata.BusinessID)
	assert.False(t, req.Accounts[1].Active)
	assert.Empty(t, req.Accounts[1].Metadata.BusinessID)
}

func TestNewFacebookProviderValidates(t *testing.T) {
	_, err := NewFacebookProvider(FacebookConfig{AppID: "id"})
	assert.Error(t, err)
	_, err = NewFacebookProvider(FacebookConfig{AppID: "id", AppSecret: "secret"})
	assert.Error(t, err)
}
