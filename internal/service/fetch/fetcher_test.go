package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/annko/keiba-bot-go/internal/metrics"
	"github.com/annko/keiba-bot-go/pkg/errors"
)

func testConfig() Config {
	return Config{
		Timeout:           2 * time.Second,
		RetryCount:        0,
		RequestsPerSecond: 1000,
		Burst:             100,
	}
}

func TestDocumentDecodesEUCJP(t *testing.T) {
	page, err := japanese.EUCJP.NewEncoder().String(`<html><body><h1>天皇賞(秋)</h1></body></html>`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=EUC-JP")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	m := metrics.New()
	f, err := New(testConfig(), m, nil)
	require.NoError(t, err)

	doc, err := f.Document(context.Background(), srv.URL, CharsetEUCJP)
	require.NoError(t, err)
	require.Equal(t, "天皇賞(秋)", doc.Find("h1").Text())
	require.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("127.0.0.1", "ok")))
}

func TestDocumentDecodesCP932(t *testing.T) {
	page, err := japanese.ShiftJIS.NewEncoder().String(`<table class="c1"><tr><td>馬番</td></tr></table>`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	doc, err := f.Document(context.Background(), srv.URL, CharsetCP932)
	require.NoError(t, err)
	require.Equal(t, "馬番", doc.Find("table.c1 td").Text())
}

func TestGetReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	_, err = f.Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, errors.StatusCode(err))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, _ = f.Get(context.Background(), srv.URL)
	}
	require.Equal(t, int32(5), hits.Load())
	statuses := f.BreakerStatuses()
	require.Len(t, statuses, 1)
	require.Equal(t, "fetch:127.0.0.1", statuses[0].Name)
	require.Equal(t, "OPEN", statuses[0].State.String())
}

func TestBreakerIsPerHost(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer healthy.Close()

	f, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	// Both test servers listen on 127.0.0.1; address the healthy one as localhost.
	healthyURL := strings.Replace(healthy.URL, "127.0.0.1", "localhost", 1)
	for i := 0; i < 10; i++ {
		_, _ = f.Get(context.Background(), failing.URL)
	}
	_, err = f.Get(context.Background(), healthyURL)
	require.NoError(t, err)

	statuses := f.BreakerStatuses()
	require.Len(t, statuses, 2)
	require.Equal(t, "fetch:127.0.0.1", statuses[0].Name)
	require.Equal(t, "OPEN", statuses[0].State.String())
	require.Equal(t, "fetch:localhost", statuses[1].Name)
	require.Equal(t, "CLOSED", statuses[1].State.String())
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("login_id") == "user" && r.PostForm.Get("pswd") == "secret" {
			http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "token", Path: "/"})
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.LoginURL = srv.URL + "/account/?pid=login&action=auth"

	f, err := New(cfg, nil, nil)
	require.NoError(t, err)
	require.Error(t, f.Login(context.Background(), "user", "wrong"))
	require.False(t, f.LoggedIn())

	require.NoError(t, f.Login(context.Background(), "user", "secret"))
	require.True(t, f.LoggedIn())
}

func TestDecodeRejectsUnknownCharset(t *testing.T) {
	_, err := Decode([]byte("x"), "klingon")
	require.Error(t, err)

	out, err := Decode([]byte("plain"), CharsetUTF8)
	require.NoError(t, err)
	require.Equal(t, "plain", string(out))
}

func TestDecodeSniffsMetaCharset(t *testing.T) {
	page, err := japanese.EUCJP.NewEncoder().String(`<html><head><meta charset="EUC-JP"></head><body>東京</body></html>`)
	require.NoError(t, err)

	out, err := Decode([]byte(page), CharsetAuto)
	require.NoError(t, err)
	require.Contains(t, string(out), "東京")

	out, err = Decode([]byte("<p>plain</p>"), CharsetAuto)
	require.NoError(t, err)
	require.Equal(t, "<p>plain</p>", string(out))
}
