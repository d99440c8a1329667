// Package wenet is the client for the WeNet service API: task records,
// task transactions, user profiles and OAuth token refresh.
package wenet

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/InternetOfUs/app-telegram-bot-sub000/internal/entity"
	pkgRetry "github.com/InternetOfUs/app-telegram-bot-sub000/internal/pkg/retry"
	pkgHTTP "github.com/InternetOfUs/app-telegram-bot-sub000/pkg/http"
	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// API is the remote procedure surface consumed by dialogue handlers and
// the reconciliation job. Creations are never retried; reads are.
type API interface {
	CreateTask(ctx context.Context, token string, task *entity.Task) (*entity.Task, error)
	CreateTaskTransaction(ctx context.Context, token string, transaction *entity.Transaction) error
	GetTask(ctx context.Context, token, taskID string) (*entity.Task, error)
	GetUserProfile(ctx context.Context, token, userID string) (*entity.UserProfile, error)
	GetAllTasksOfApplication(ctx context.Context, token, appID string) ([]entity.Task, error)
	RefreshCredentials(ctx context.Context, refreshToken string) (*Credentials, error)
}

// Client talks to the WeNet service API over HTTP.
type Client struct {
	connector *pkgHTTP.Connector
	oauth     *oauthClient
	retryOpts []retry.Option
	logger    *zap.Logger
}

// Config holds the client's endpoints and credentials.
type Config struct {
	// BaseURL of the service API, e.g. https://internetofus.u-hopper.com/prod/service
	BaseURL string

	// OAuth token endpoint and the app's client credentials
	TokenURL     string
	ClientID     string
	ClientSecret string

	// Optional component API key sent when a user token is absent
	APIKey string

	Retry pkgRetry.RetryConfig
}

// NewClient creates a service API client.
func NewClient(cfg Config, options []pkgHTTP.HttpOpts, logger *zap.Logger) *Client {
	// Attempts(0) would mean retry forever in retry-go.
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = *pkgRetry.DefaultRetryConfig()
	}

	opts := append([]pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.APIKey),
	}, options...)

	connector := pkgHTTP.NewConnector(&pkgHTTP.ConnectorConfig{
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	}, opts...)

	return &Client{
		connector: connector,
		oauth:     newOauthClient(cfg, options, logger),
		retryOpts: cfg.Retry.ToRetryOptions(),
		logger:    logger,
	}
}

func authHeader(token string) pkgHTTP.RequestOpt {
	return pkgHTTP.WithHeader("Authorization", "Bearer "+token)
}

// CreateTask submits a new task record. Rejections come back as
// *CreationError; the call is never retried.
func (c *Client) CreateTask(ctx context.Context, token string, task *entity.Task) (*entity.Task, error) {
	var created entity.Task
	err := c.connector.DoRequest(ctx, http.MethodPost, "/task", task, &created, authHeader(token))
	if err != nil {
		return nil, asCreationError(err)
	}
	return &created, nil
}

// CreateTaskTransaction submits a transaction against an existing task.
// Never retried.
func (c *Client) CreateTaskTransaction(ctx context.Context, token string, transaction *entity.Transaction) error {
	err := c.connector.DoRequest(ctx, http.MethodPost, "/task/transaction", transaction, nil, authHeader(token))
	if err != nil {
		return asCreationError(err)
	}
	return nil
}

// GetTask fetches a task by id. Missing tasks map to entity.ErrTaskNotFound.
func (c *Client) GetTask(ctx context.Context, token, taskID string) (*entity.Task, error) {
	var task entity.Task
	err := c.doRead(ctx, func() error {
		return c.connector.DoRequest(ctx, http.MethodGet, "/task/"+taskID, nil, &task, authHeader(token))
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, entity.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return &task, nil
}

// GetUserProfile fetches a user profile, returning nil without error when
// the profile does not exist.
func (c *Client) GetUserProfile(ctx context.Context, token, userID string) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	err := c.doRead(ctx, func() error {
		return c.connector.DoRequest(ctx, http.MethodGet, "/user/profile/"+userID, nil, &profile, authHeader(token))
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user profile %s: %w", userID, err)
	}
	return &profile, nil
}

// GetAllTasksOfApplication lists every task of the application.
func (c *Client) GetAllTasksOfApplication(ctx context.Context, token, appID string) ([]entity.Task, error) {
	var page struct {
		Tasks []entity.Task `json:"tasks"`
	}
	err := c.doRead(ctx, func() error {
		return c.connector.DoRequest(ctx, http.MethodGet, "/tasks?appId="+appID, nil, &page, authHeader(token))
	})
	if err != nil {
		return nil, fmt.Errorf("get tasks of application %s: %w", appID, err)
	}
	return page.Tasks, nil
}

// RefreshCredentials exchanges the refresh token for a new token pair.
func (c *Client) RefreshCredentials(ctx context.Context, refreshToken string) (*Credentials, error) {
	return c.oauth.refresh(ctx, refreshToken)
}

// doRead wraps an idempotent call with retries. Client errors (4xx) are
// final and not repeated.
func (c *Client) doRead(ctx context.Context, call func() error) error {
	return retry.Do(call,
		append(c.retryOpts,
			retry.Context(ctx),
			retry.RetryIf(func(err error) bool {
				var httpErr *pkgHTTP.HTTPError
				if errors.As(err, &httpErr) {
					return httpErr.StatusCode >= 500
				}
				var netErr *pkgHTTP.NetworkError
				return errors.As(err, &netErr)
			}),
			retry.LastErrorOnly(true),
		)...,
	)
}

func isStatus(err error, status int) bool {
	var httpErr *pkgHTTP.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

func asCreationError(err error) error {
	var httpErr *pkgHTTP.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 401 {
			// Leave 401 recognizable so the caller can refresh and repeat.
			return err
		}
		return &CreationError{Status: httpErr.StatusCode, Body: httpErr.Message}
	}
	return err
}
