package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/iho/rentledger/internal/infrastructure/config"
)

func TestNewTokenVerifier(t *testing.T) {
	verifier, err := newTokenVerifier(&config.Config{AuthEnabled: false})
	if err != nil || verifier != nil {
		t.Fatalf("expected no verifier when auth is disabled, got %v, %v", verifier, err)
	}

	if _, err := newTokenVerifier(&config.Config{AuthEnabled: true}); err == nil {
		t.Fatal("expected an error without a secret")
	}

	verifier, err = newTokenVerifier(&config.Config{AuthEnabled: true, JWTSecret: "secret", JWTExpiration: time.Hour})
	if err != nil || verifier == nil {
		t.Fatalf("expected a verifier, got %v, %v", verifier, err)
	}
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		HTTPPort:         "9090",
		HTTPReadTimeout:  time.Second,
		HTTPWriteTimeout: 2 * time.Second,
		HTTPIdleTimeout:  3 * time.Second,
	}

	srv := newServer(cfg, http.NotFoundHandler())

	if srv.Addr != ":9090" {
		t.Fatalf("expected :9090, got %s", srv.Addr)
	}
	if srv.ReadTimeout != time.Second || srv.WriteTimeout != 2*time.Second || srv.IdleTimeout != 3*time.Second {
		t.Fatalf("unexpected timeouts %v %v %v", srv.ReadTimeout, srv.WriteTimeout, srv.IdleTimeout)
	}
}

func TestNewRegistry(t *testing.T) {
	families, err := newRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected runtime collectors to be registered")
	}
}
