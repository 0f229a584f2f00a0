package main

import (
	"context"
	"net"
	"net/http"
	"testing"
)

func TestNewHTTPServer(t *testing.T) {
	type key struct{}
	base := context.WithValue(context.Background(), key{}, "root")

	srv := newHTTPServer(base, "8080", http.NotFoundHandler())
	if srv.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", srv.Addr, ":8080")
	}
	if srv.ReadHeaderTimeout <= 0 {
		t.Error("expected a read header timeout")
	}
	if got := srv.BaseContext(&net.TCPListener{}); got.Value(key{}) != "root" {
		t.Error("request contexts must derive from the root context")
	}
}
