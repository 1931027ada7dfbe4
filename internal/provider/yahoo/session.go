package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const cookieURL = "https://fc.yahoo.com"

// Credentials authorize requests against the Yahoo API.
type Credentials struct {
	Cookie string
	Crumb  string
}

// FetchFunc obtains fresh credentials.
type FetchFunc func(ctx context.Context) (Credentials, error)

// Session caches credentials. They are fetched lazily on first use, dropped
// by Invalidate, and at most one refresh per generation is in flight.
type Session struct {
	fetch   FetchFunc
	timeout time.Duration

	mu    sync.RWMutex
	gen   uint64
	creds *Credentials

	group singleflight.Group
}

// NewSession returns a session that refreshes credentials with fetch.
func NewSession(fetch FetchFunc) *Session {
	return &Session{fetch: fetch, timeout: 10 * time.Second}
}

// Get returns cached credentials or waits for a refresh. A canceled ctx
// abandons the wait without canceling the shared refresh.
func (s *Session) Get(ctx context.Context) (Credentials, error) {
	s.mu.RLock()
	if s.creds != nil {
		c := *s.creds
		s.mu.RUnlock()
		return c, nil
	}
	gen := s.gen
	s.mu.RUnlock()

	ch := s.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		c, err := s.fetch(fctx)
		if err != nil {
			return Credentials{}, err
		}
		s.mu.Lock()
		if s.gen == gen {
			s.creds = &c
		}
		s.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return Credentials{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Credentials{}, r.Err
		}
		return r.Val.(Credentials), nil
	}
}

// Invalidate drops the cached credentials so the next Get refreshes.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.gen++
	s.creds = nil
	s.mu.Unlock()
}

// CrumbFetcher collects the consent cookie and exchanges it for a crumb.
func CrumbFetcher(client HTTPClient, apiBaseURL string) FetchFunc {
	return func(ctx context.Context) (Credentials, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cookieURL, http.NoBody)
		if err != nil {
			return Credentials{}, fmt.Errorf("creating cookie request: %w", err)
		}
		res, err := client.Do(req)
		if err != nil {
			return Credentials{}, fmt.Errorf("performing cookie request: %w", err)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
		res.Body.Close()

		parts := make([]string, 0, len(res.Cookies()))
		for _, ck := range res.Cookies() {
			parts = append(parts, ck.Name+"="+ck.Value)
		}
		cookie := strings.Join(parts, "; ")
		if cookie == "" {
			return Credentials{}, errors.New("yahoo: no session cookie")
		}

		req, err = http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+"/v1/test/getcrumb", http.NoBody)
		if err != nil {
			return Credentials{}, fmt.Errorf("creating crumb request: %w", err)
		}
		req.Header.Set("Cookie", cookie)
		res, err = client.Do(req)
		if err != nil {
			return Credentials{}, fmt.Errorf("performing crumb request: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return Credentials{}, fmt.Errorf("crumb request: unexpected status code: %d", res.StatusCode)
		}
		b, err := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		if err != nil {
			return Credentials{}, fmt.Errorf("reading crumb: %w", err)
		}
		crumb := strings.TrimSpace(string(b))
		if crumb == "" || strings.ContainsAny(crumb, "<{") {
			return Credentials{}, errors.New("yahoo: invalid crumb")
		}
		return Credentials{Cookie: cookie, Crumb: crumb}, nil
	}
}
