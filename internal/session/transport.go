package session

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Transport authorizes requests with the stored access token and recovers
// from one 401 per request by refreshing and replaying.
type Transport struct {
	// Base is the underlying transport. Nil means http.DefaultTransport.
	Base http.RoundTripper

	// Sessions supplies and refreshes tokens.
	Sessions *Manager
}

// RoundTrip implements http.RoundTripper. Each call is one chain with a
// single refresh attempt: either a proactive refresh of an expired token,
// or a refresh after the first 401. A 401 on the replay is returned as-is.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	s, err := t.Sessions.load(ctx)
	if err != nil {
		return nil, err
	}

	access := s.AccessToken
	retried := false
	if access != "" && !t.Sessions.usable(access) {
		if s.RefreshToken == "" {
			// Never send a token past its exp; let the server answer.
			access = ""
		} else {
			retried = true
			access, err = t.Sessions.Refresh(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	resp, err := t.send(req, getBody, access)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, err
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	access, err = t.Sessions.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return t.send(req, getBody, access)
}

// send clones req with a fresh body and the given token.
func (t *Transport) send(req *http.Request, getBody func() (io.ReadCloser, error), access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}

	out.Header.Del("Authorization")
	if access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(out)
	}
	return t.base().RoundTrip(out)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// replayableBody returns a function producing fresh copies of req's body,
// buffering it when the request cannot rewind on its own.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}
