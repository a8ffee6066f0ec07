package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"gate-checkin-backend/config"
)

const searchPage = `<html><body>
<form method="post" action="/search/results">
	<input type="hidden" name="__RequestVerificationToken" value="tok123">
	<label for="lic">Licence number</label>
	<input id="lic" name="LicenseNo" type="text">
	<button type="submit" name="action" value="clear">Clear</button>
	<input type="submit" name="search" value="Search">
</form>
</body></html>`

// fakeRegister serves a search form that only answers when the session cookie
// and anti-forgery token from the form page are replayed.
type fakeRegister struct {
	server  *httptest.Server
	posts   atomic.Int32
	results map[string]string
}

func newFakeRegister(t *testing.T) *fakeRegister {
	t.Helper()
	f := &fakeRegister{results: map[string]string{
		"1234567890123456": foundPage,
		"0000000000000000": `<p>No results found for your search.</p>`,
		"1111111111111111": `<div class="g-recaptcha" data-sitekey="k"></div>`,
		"2222222222222222": `<div class="validation-summary-errors"><ul><li>Please enter a valid licence number</li></ul></div>`,
	}}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/search/results", func(w http.ResponseWriter, r *http.Request) {
		f.posts.Add(1)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "abc" {
			http.Error(w, "no session", http.StatusForbidden)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("__RequestVerificationToken") != "tok123" || r.PostForm.Get("search") != "Search" {
			http.Error(w, "bad token", http.StatusBadRequest)
			return
		}
		page, ok := f.results[r.PostForm.Get("LicenseNo")]
		if !ok {
			page = `<h1>Something went wrong</h1>`
		}
		fmt.Fprint(w, page)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func testConfig(searchURL string) *config.RegistryConfig {
	return &config.RegistryConfig{
		Enabled:   true,
		SearchURL: searchURL,
		UserAgent: "test-agent",
	}
}

func TestClient_LookupFound(t *testing.T) {
	reg := newFakeRegister(t)
	var outcomes []Outcome
	c := NewClient(testConfig(reg.server.URL+"/search"), WithObserver(func(o Outcome) { outcomes = append(outcomes, o) }))

	res := c.Lookup(context.Background(), "1234567890123456")

	assert.Empty(t, res.Error)
	assert.True(t, res.Found)
	assert.Equal(t, "JANE", res.FirstName)
	assert.Equal(t, "DOE", res.Surname)
	assert.Equal(t, "1234567890123456", res.LicenceNumber)
	assert.Equal(t, "Active", res.Status)
	assert.Equal(t, []Outcome{OutcomeFound}, outcomes)
}

func TestClient_LookupOutcomes(t *testing.T) {
	reg := newFakeRegister(t)
	c := NewClient(testConfig(reg.server.URL + "/search"))

	tests := []struct {
		name    string
		licence string
		found   bool
		err     error
	}{
		{"no results", "0000000000000000", false, nil},
		{"captcha", "1111111111111111", false, ErrCaptcha},
		{"validation", "2222222222222222", false, ErrValidation},
		{"unrecognized", "3333333333333333", false, ErrUnrecognizedPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Lookup(context.Background(), tt.licence)
			assert.Equal(t, tt.found, res.Found)
			if tt.err == nil {
				assert.Empty(t, res.Error)
			} else {
				assert.Equal(t, tt.err.Error(), res.Error)
			}
		})
	}
}

func TestClient_CachesCleanAnswers(t *testing.T) {
	reg := newFakeRegister(t)
	c := NewClient(testConfig(reg.server.URL + "/search"))

	c.Lookup(context.Background(), "1234567890123456")
	c.Lookup(context.Background(), "1234567890123456")
	assert.Equal(t, int32(1), reg.posts.Load())

	c.Lookup(context.Background(), "0000000000000000")
	c.Lookup(context.Background(), "0000000000000000")
	assert.Equal(t, int32(2), reg.posts.Load(), "a clean not-found answer is cached too")

	c.Lookup(context.Background(), "1111111111111111")
	c.Lookup(context.Background(), "1111111111111111")
	assert.Equal(t, int32(4), reg.posts.Load(), "failures are never cached")
}

func TestClient_ConcurrentLookupsShareRequest(t *testing.T) {
	reg := newFakeRegister(t)
	c := NewClient(testConfig(reg.server.URL + "/search"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.Lookup(context.Background(), "1234567890123456")
			assert.True(t, res.Found)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, reg.posts.Load(), int32(8))
	assert.GreaterOrEqual(t, reg.posts.Load(), int32(1))
}

func TestClient_LookupSurvivesCallerCancel(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("/search/results", func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(entered) })
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, foundPage)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewClient(testConfig(server.URL + "/search"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Result, 1)
	go func() { done <- c.Lookup(ctx, "1234567890123456") }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("register was never queried")
	}
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	var res Result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lookup did not return")
	}
	assert.Empty(t, res.Error)
	assert.True(t, res.Found)

	// The answer was cached for the other callers of the flight.
	cached := c.Lookup(context.Background(), "1234567890123456")
	assert.True(t, cached.Found)
}

func TestClient_Disabled(t *testing.T) {
	cfg := testConfig("http://register.invalid/search")
	cfg.Enabled = false
	c := NewClient(cfg)

	res := c.Lookup(context.Background(), "1234567890123456")
	assert.False(t, res.Found)
	assert.Equal(t, ErrDisabled.Error(), res.Error)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	target := server.URL + "/search"
	server.Close()

	var outcomes []Outcome
	c := NewClient(testConfig(target), WithObserver(func(o Outcome) { outcomes = append(outcomes, o) }))

	res := c.Lookup(context.Background(), "1234567890123456")
	assert.False(t, res.Found)
	assert.Contains(t, res.Error, "http request failed")
	assert.Equal(t, []Outcome{OutcomeError}, outcomes)
}

func TestClient_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	c := NewClient(testConfig(server.URL))

	res := c.Lookup(context.Background(), "1234567890123456")
	assert.Contains(t, res.Error, "non-200")
}

func TestClient_FormMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>Down for maintenance</p>`)
	}))
	defer server.Close()
	c := NewClient(testConfig(server.URL))

	res := c.Lookup(context.Background(), "1234567890123456")
	assert.Equal(t, ErrFormNotFound.Error(), res.Error)
}

type panickingParser struct{ *HTMLParser }

func (panickingParser) Classify(*html.Node) Outcome { panic("boom") }

func TestClient_RecoversFromParserPanic(t *testing.T) {
	reg := newFakeRegister(t)
	c := NewClient(testConfig(reg.server.URL+"/search"), WithParser(panickingParser{NewHTMLParser(nil, nil, nil)}))

	var res Result
	require.NotPanics(t, func() { res = c.Lookup(context.Background(), "1234567890123456") })
	assert.False(t, res.Found)
	assert.Contains(t, res.Error, "boom")
}

func TestClient_GetForm(t *testing.T) {
	var gotQuery url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form method="get" action="/find"><input name="LicenceNo"></form>`)
	})
	mux.HandleFunc("/find", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `<p>No matching licence holders</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	c := NewClient(testConfig(server.URL + "/"))

	res := c.Lookup(context.Background(), "1234567890123456")
	assert.Empty(t, res.Error)
	assert.False(t, res.Found)
	assert.Equal(t, "1234567890123456", gotQuery.Get("LicenceNo"))
}
