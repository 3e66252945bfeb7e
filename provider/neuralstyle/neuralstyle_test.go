package neuralstyle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"picmagic/provider"
	"picmagic/styles"
)

// fakeSaaS serves the source image, the job submission endpoint and the
// job poll endpoint from one test server.
type fakeSaaS struct {
	submit    func(w http.ResponseWriter, r *http.Request)
	poll      func(w http.ResponseWriter, r *http.Request, attempt int32)
	pollCalls atomic.Int32
}

func (f *fakeSaaS) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/src.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	})
	mux.HandleFunc("/api.json", func(w http.ResponseWriter, r *http.Request) {
		f.submit(w, r)
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		f.poll(w, r, f.pollCalls.Add(1))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p := New(baseURL, styles.NewTable(styles.Defaults()), zaptest.NewLogger(t))
	p.pollAttempts = 3
	p.pollDelay = 5 * time.Millisecond
	return p
}

func TestStylizeSynchronousResult(t *testing.T) {
	saas := &fakeSaaS{
		submit: func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "secret", r.FormValue("api_key"))
			assert.Equal(t, "873", r.FormValue("style_id"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result": "OK",
				"url":    "https://cdn.example.com/out.png",
			})
		},
	}
	srv := saas.start(t)

	p := newTestProvider(t, srv.URL)
	result, err := p.Stylize(context.Background(), provider.Request{
		ImageURL: srv.URL + "/src.png",
		Style:    "kandinsky",
		APIKey:   "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/out.png", result.PreviewURL)
	assert.Equal(t, []string{"https://cdn.example.com/out.png"}, result.ImageURLs)
	assert.Equal(t, "Kandinsky", result.StyleName)
}

func TestStylizePollsUntilDone(t *testing.T) {
	saas := &fakeSaaS{
		submit: func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result":       "OK",
				"filterjob_id": 42,
			})
		},
		poll: func(w http.ResponseWriter, r *http.Request, attempt int32) {
			assert.Equal(t, "/api/42.json", r.URL.Path)
			if attempt < 2 {
				json.NewEncoder(w).Encode(map[string]interface{}{"status": "processing", "progress": 50})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "done", "url": "https://cdn.example.com/styled.png"})
		},
	}
	srv := saas.start(t)

	p := newTestProvider(t, srv.URL)
	result, err := p.Stylize(context.Background(), provider.Request{
		ImageURL: srv.URL + "/src.png",
		Style:    "sketch",
		APIKey:   "k",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/styled.png", result.PreviewURL)
	assert.Equal(t, int32(2), saas.pollCalls.Load())
}

func TestStylizePollBudgetExhausted(t *testing.T) {
	saas := &fakeSaaS{
		submit: func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"result":       "OK",
				"filterjob_id": 7,
			})
		},
		poll: func(w http.ResponseWriter, r *http.Request, attempt int32) {
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "processing", "progress": 10})
		},
	}
	srv := saas.start(t)

	p := newTestProvider(t, srv.URL)
	_, err := p.Stylize(context.Background(), provider.Request{
		ImageURL: srv.URL + "/src.png",
		Style:    "sketch",
		APIKey:   "k",
	})

	assert.ErrorIs(t, err, provider.ErrStillProcessing)
	assert.Equal(t, int32(3), saas.pollCalls.Load())
}

func TestStylizeUpstreamFailure(t *testing.T) {
	saas := &fakeSaaS{
		submit: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad api key", http.StatusUnauthorized)
		},
	}
	srv := saas.start(t)

	p := newTestProvider(t, srv.URL)
	_, err := p.Stylize(context.Background(), provider.Request{
		ImageURL: srv.URL + "/src.png",
		Style:    "sketch",
		APIKey:   "wrong",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(http.StatusUnauthorized))
}

func TestStylizeMissingCredential(t *testing.T) {
	p := newTestProvider(t, "http://unused.invalid")
	_, err := p.Stylize(context.Background(), provider.Request{
		ImageURL: "http://unused.invalid/src.png",
		Style:    "sketch",
	})

	assert.ErrorIs(t, err, provider.ErrMissingCredential)
}
