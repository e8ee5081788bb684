package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWaitsForInFlightRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		_, _ = w.Write([]byte("done"))
	})}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	other := &http.Server{Handler: http.NotFoundHandler()}
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	otherErr := make(chan error, 1)
	go func() { otherErr <- other.Serve(ln2) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- serve(ctx, 5*time.Second, s, func() error { return s.Serve(ln) }, other) }()

	type reply struct {
		body string
		err  error
	}
	replies := make(chan reply, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			replies <- reply{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		replies <- reply{body: string(b), err: err}
	}()

	<-entered
	cancel()
	select {
	case err := <-served:
		t.Fatalf("serve returned while a request was in flight: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	r := <-replies
	require.NoError(t, r.err)
	assert.Equal(t, "done", r.body)

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the request completed")
	}
	assert.ErrorIs(t, <-otherErr, http.ErrServerClosed, "secondary servers are shut down too")
}

func TestServeListenError(t *testing.T) {
	other := &http.Server{}
	err := serve(context.Background(), time.Second, &http.Server{}, func() error { return errors.New("bind: address in use") }, other)
	assert.EqualError(t, err, "bind: address in use")
}

func TestRedirectServer(t *testing.T) {
	rs := newRedirectServer(":80", ":8443")
	rec := httptest.NewRecorder()
	rs.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://turnout.example:80/api/stats?x=1", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://turnout.example:8443/api/stats?x=1", rec.Header().Get("Location"))
}
