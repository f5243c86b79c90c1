package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateUsesFirstResult(t *testing.T) {
	var gotQuery, gotFormat, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"place_id": 1, "lat": "48.8588897", "lon": "2.3200410", "display_name": "Paris"},
			{"place_id": 2, "lat": "33.6617962", "lon": "-95.5555130", "display_name": "Paris, Texas"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "profile-directory-test", nil)
	coords, err := c.Locate(context.Background(), "Paris & Co #1")
	require.NoError(t, err)

	assert.Equal(t, "Paris & Co #1", gotQuery)
	assert.Equal(t, "json", gotFormat)
	assert.Equal(t, "profile-directory-test", gotAgent)
	assert.InDelta(t, 48.8588897, coords.Lat, 1e-9)
	assert.InDelta(t, 2.3200410, coords.Lon, 1e-9)
}

func TestLocateNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", nil).Locate(context.Background(), "Nowhereville123xyz")
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestLocateFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>rate limited</html>`))
		},
		"bad latitude": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"lat": "north", "lon": "2.3"}]`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, "", nil).Locate(context.Background(), "Paris")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrAddressNotFound)
		})
	}
}

func TestLocateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat": "1", "lon": "2"}]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "", nil).Locate(ctx, "Paris")
	assert.ErrorIs(t, err, context.Canceled)
}
