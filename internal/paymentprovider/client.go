// Package paymentprovider реализует клиент PayPal для проверки подписок.
//
// Access token получается по OAuth2 client credentials и кешируется до истечения.
// Ошибки классифицируются sentinel-значениями: ErrAuth, ErrNotFound,
// ErrUpstream и ErrNetwork. Тело ответа PayPal наружу не передаётся.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/magabrotheeeer/userbase/internal/config"
)

var (
	// ErrAuth PayPal отклонил учётные данные или токен.
	ErrAuth = errors.New("paypal: authentication failed")
	// ErrNotFound подписка не найдена.
	ErrNotFound = errors.New("paypal: subscription not found")
	// ErrUpstream PayPal ответил неожиданным статусом.
	ErrUpstream = errors.New("paypal: unexpected response")
	// ErrNetwork запрос не дошёл до PayPal или не дождался ответа.
	ErrNetwork = errors.New("paypal: request failed")
)

// StatusError ошибка с HTTP-статусом ответа PayPal.
type StatusError struct {
	StatusCode int
	Name       string // имя ошибки PayPal, например RESOURCE_NOT_FOUND
	DebugID    string
	kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d %s (debug_id %s)", e.kind, e.StatusCode, e.Name, e.DebugID)
}

func (e *StatusError) Unwrap() error { return e.kind }

// Client клиент PayPal REST API.
type Client struct {
	apiURL      string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewClient создаёт клиента PayPal. ctx используется для получения токенов
// и должен жить всё время работы клиента.
func NewClient(ctx context.Context, cfg config.PayPal) *Client {
	apiURL := strings.TrimRight(cfg.BaseURL, "/")
	base := &http.Client{Timeout: cfg.Timeout}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     apiURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	ts := cc.TokenSource(ctx)

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		apiURL:      apiURL,
		tokenSource: ts,
		httpClient:  httpClient,
	}
}

// AccessToken возвращает действующий access token, при необходимости запрашивая новый.
// Запрос токена выполняется в контексте, переданном в NewClient.
func (c *Client) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	tok, err := c.tokenSource.Token()
	if err != nil {
		return nil, classify(err)
	}
	return tok, nil
}

// GetSubscription возвращает статус и платёжные циклы подписки.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	const op = "paymentprovider.GetSubscription"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/v1/billing/subscriptions/"+url.PathEscape(subscriptionID), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w", op, statusError(resp))
	}

	var body subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w: decode body: %v", op, ErrUpstream, err)
	}
	return body.toSubscription(), nil
}

func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := 0
		if retrieveErr.Response != nil {
			code = retrieveErr.Response.StatusCode
		}
		return &StatusError{StatusCode: code, Name: retrieveErr.ErrorCode, kind: ErrAuth}
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func statusError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	kind := ErrUpstream
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	case http.StatusNotFound:
		kind = ErrNotFound
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Name:       body.Name,
		DebugID:    body.DebugID,
		kind:       kind,
	}
}
