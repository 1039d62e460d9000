package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func searchServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastFinder(baseURL string) *DuckDuckGoFinder {
	return NewDuckDuckGoFinder(DuckDuckGoConfig{
		BaseURL:  baseURL,
		MinDelay: time.Millisecond,
		MaxDelay: 2 * time.Millisecond,
	})
}

func TestFindProfileReturnsFirstLinkedInResult(t *testing.T) {
	t.Parallel()

	srv := searchServer(t, `<html><body>
		<a class="result__a" href="https://example.com/not-it">Other</a>
		<a class="result__a" href="https://linkedin.com/in/ada-lovelace">Ada Lovelace</a>
		<a class="result__a" href="https://linkedin.com/in/second">Second</a>
	</body></html>`)

	finder := fastFinder(srv.URL)
	profileURL, err := finder.FindProfile(context.Background(), "Ada Lovelace", "Lovelace Ltd")
	require.NoError(t, err)
	require.Equal(t, "https://linkedin.com/in/ada-lovelace", profileURL)
}

func TestFindProfileUnwrapsRedirectLinks(t *testing.T) {
	t.Parallel()

	srv := searchServer(t, `<html><body>
		<a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Flinkedin.com%2Fin%2Fada">Ada</a>
	</body></html>`)

	finder := fastFinder(srv.URL)
	profileURL, err := finder.FindProfile(context.Background(), "Ada", "")
	require.NoError(t, err)
	require.Equal(t, "https://linkedin.com/in/ada", profileURL)
}

func TestFindProfileNoMatchReturnsEmpty(t *testing.T) {
	t.Parallel()

	srv := searchServer(t, `<html><body>
		<a class="result__a" href="https://example.com/profile">Not LinkedIn</a>
	</body></html>`)

	finder := fastFinder(srv.URL)
	profileURL, err := finder.FindProfile(context.Background(), "Nobody", "Nowhere")
	require.NoError(t, err)
	require.Empty(t, profileURL)
}

func TestResolveResultLink(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://linkedin.com/in/ada",
		resolveResultLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Flinkedin.com%2Fin%2Fada&rut=abc"))
	require.Equal(t, "https://linkedin.com/in/direct",
		resolveResultLink("https://linkedin.com/in/direct"))
}

func TestIsProfileLink(t *testing.T) {
	t.Parallel()

	require.True(t, isProfileLink("https://www.linkedin.com/in/ada"))
	require.True(t, isProfileLink("https://linkedin.com/pub/ada/1/2/3"))
	require.False(t, isProfileLink("https://linkedin.com/company/lovelace"))
}
