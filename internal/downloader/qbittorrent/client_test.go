package qbittorrent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientForServer(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return New(Config{
		Host:     u.Hostname(),
		Port:     port,
		Username: "admin",
		Password: "secret",
		Category: "games",
	}, zerolog.Nop())
}

func TestClient_Test(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			require.NoError(t, r.ParseForm())
			if r.Form.Get("username") != "admin" || r.Form.Get("password") != "secret" {
				w.Write([]byte("Fails."))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "abc"})
			w.Write([]byte("Ok."))
		case "/api/v2/app/version":
			w.Write([]byte("v5.0.1"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := clientForServer(t, server)
	assert.NoError(t, client.Test(context.Background()))
}

func TestClient_Test_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Fails."))
	}))
	defer server.Close()

	client := clientForServer(t, server)
	assert.Error(t, client.Test(context.Background()))
}

func TestClient_AddMagnet(t *testing.T) {
	var gotURLs, gotCategory string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "SID", Value: "abc"})
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/add":
			require.NoError(t, r.ParseForm())
			gotURLs = r.Form.Get("urls")
			gotCategory = r.Form.Get("category")
			w.Write([]byte("Ok."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := clientForServer(t, server)
	magnet := "magnet:?xt=urn:btih:C12FE1C06BBA254A9DC9F519B335AA7C1367A88A&dn=test"

	handle, err := client.AddMagnetOrTorrent(context.Background(), magnet, "", false)
	require.NoError(t, err)

	assert.Equal(t, "c12fe1c06bba254a9dc9f519b335aa7c1367a88a", handle)
	assert.Equal(t, magnet, gotURLs)
	assert.Equal(t, "games", gotCategory) // falls back to the configured category
}

func TestClient_AddRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/add":
			w.Write([]byte("Fails."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := clientForServer(t, server)
	_, err := client.AddMagnetOrTorrent(context.Background(), "http://example.com/file.torrent", "", false)
	assert.Error(t, err)
}

func TestClient_ReloginOnExpiredSession(t *testing.T) {
	logins := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/auth/login":
			logins++
			w.Write([]byte("Ok."))
		case "/api/v2/torrents/add":
			if logins < 2 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte("Ok."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := clientForServer(t, server)
	_, err := client.AddMagnetOrTorrent(context.Background(), "http://example.com/file.torrent", "", false)
	require.NoError(t, err)
	assert.Equal(t, 2, logins)
}
