package yahoo_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketquotes/internal/provider/yahoo"
)

func TestSession_SingleRefreshForConcurrentCallers(t *testing.T) {
	t.Parallel()

	// Arrange: a slow fetcher counting invocations
	var calls atomic.Int32
	release := make(chan struct{})
	session := yahoo.NewSession(func(context.Context) (yahoo.Credentials, error) {
		calls.Add(1)
		<-release
		return yahoo.Credentials{Cookie: "A3=x", Crumb: "crumb"}, nil
	})

	// Act: many callers race for credentials
	var wg sync.WaitGroup
	results := make([]yahoo.Credentials, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := session.Get(context.Background())
			require.NoError(t, err)
			results[i] = c
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Assert
	require.Equal(t, int32(1), calls.Load())
	for _, c := range results {
		require.Equal(t, "crumb", c.Crumb)
	}

	// Assert: cached credentials do not trigger another refresh
	_, err := session.Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestSession_Invalidate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	session := yahoo.NewSession(func(context.Context) (yahoo.Credentials, error) {
		calls.Add(1)
		return yahoo.Credentials{Crumb: "c"}, nil
	})

	_, err := session.Get(t.Context())
	require.NoError(t, err)
	session.Invalidate()
	_, err = session.Get(t.Context())
	require.NoError(t, err)

	require.Equal(t, int32(2), calls.Load())
}

func TestSession_ErrorIsNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	session := yahoo.NewSession(func(context.Context) (yahoo.Credentials, error) {
		if calls.Add(1) == 1 {
			return yahoo.Credentials{}, errors.New("boom")
		}
		return yahoo.Credentials{Crumb: "ok"}, nil
	})

	_, err := session.Get(t.Context())
	require.Error(t, err)

	c, err := session.Get(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", c.Crumb)
}

func TestSession_CanceledWaiter(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)
	session := yahoo.NewSession(func(context.Context) (yahoo.Credentials, error) {
		<-release
		return yahoo.Credentials{Crumb: "late"}, nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := session.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCrumbFetcher(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	gomock.InOrder(
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				require.Equal(t, "fc.yahoo.com", req.URL.Host)
				header := http.Header{}
				header.Add("Set-Cookie", "A3=d=AQABBK; Domain=.yahoo.com; Path=/")
				return &http.Response{StatusCode: http.StatusNotFound, Header: header, Body: io.NopCloser(strings.NewReader(""))}, nil
			}),
		httpClient.EXPECT().
			Do(gomock.Any()).
			DoAndReturn(func(req *http.Request) (*http.Response, error) {
				require.Equal(t, "/v1/test/getcrumb", req.URL.Path)
				require.Equal(t, "A3=d=AQABBK", req.Header.Get("Cookie"))
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("abcDEF123\n"))}, nil
			}),
	)

	// Act
	creds, err := yahoo.CrumbFetcher(httpClient, "https://query2.finance.yahoo.com")(t.Context())

	// Assert
	require.NoError(t, err)
	require.Equal(t, "abcDEF123", creds.Crumb)
	require.Equal(t, "A3=d=AQABBK", creds.Cookie)
}

func TestCrumbFetcher_NoCookie(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: io.NopCloser(strings.NewReader(""))}, nil).
		Times(1)

	_, err := yahoo.CrumbFetcher(httpClient, "https://query2.finance.yahoo.com")(t.Context())
	require.Error(t, err)
}
