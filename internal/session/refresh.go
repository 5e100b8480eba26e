package session

import (
	"context"
	"net/http"

	"github.com/teemow/taskpulse/internal/api"
)

// RefreshPath is the token refresh endpoint relative to the API base URL.
const RefreshPath = "/token/refresh/"

// HTTPRefresher refreshes tokens against the task API. Its client must not
// route through Transport.
type HTTPRefresher struct {
	client *api.Client
}

// NewHTTPRefresher creates a refresher that posts to RefreshPath via client.
func NewHTTPRefresher(client *api.Client) *HTTPRefresher {
	return &HTTPRefresher{client: client}
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Refresh implements Refresher. Servers that rotate refresh tokens may
// return a new one alongside the access token.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var resp refreshResponse
	err := r.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   refreshRequest{Refresh: refreshToken},
	}, &resp)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: resp.Access, RefreshToken: resp.Refresh}, nil
}
