package wenet

import (
	"context"
	"errors"
	"net/http"

	pkgHTTP "github.com/InternetOfUs/app-telegram-bot-sub000/pkg/http"
	"go.uber.org/zap"
)

// Credentials is a token pair issued by the WeNet OAuth server. The pair is
// persisted inside the user's conversation context.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type oauthClient struct {
	connector    *pkgHTTP.Connector
	clientID     string
	clientSecret string
	logger       *zap.Logger
}

func newOauthClient(cfg Config, options []pkgHTTP.HttpOpts, logger *zap.Logger) *oauthClient {
	opts := append([]pkgHTTP.HttpOpts{pkgHTTP.WithRequestLogging()}, options...)

	return &oauthClient{
		connector: pkgHTTP.NewConnector(&pkgHTTP.ConnectorConfig{
			BaseURL: cfg.TokenURL,
			Logger:  logger,
		}, opts...),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger,
	}
}

type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges a refresh token for a fresh pair. A 4xx answer from
// the token endpoint means the refresh token itself is no longer valid.
func (o *oauthClient) refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	req := refreshRequest{
		GrantType:    "refresh_token",
		ClientID:     o.clientID,
		ClientSecret: o.clientSecret,
		RefreshToken: refreshToken,
	}

	var creds Credentials
	if err := o.connector.DoRequest(ctx, http.MethodPost, "", req, &creds); err != nil {
		var httpErr *pkgHTTP.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			o.logger.Info("refresh token rejected by token endpoint",
				zap.Int("status", httpErr.StatusCode),
			)
			return nil, ErrRefreshTokenExpired
		}
		return nil, err
	}

	return &creds, nil
}
