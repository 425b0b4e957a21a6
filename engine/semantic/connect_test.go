package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
)

func TestConnectConfig_Validate(t *testing.T) {
	cases := []struct {
		name string
		cfg  ConnectConfig
		ok   bool
	}{
		{"local default", ConnectConfig{Addr: "localhost:6334"}, true},
		{"cloud complete", ConnectConfig{Cloud: true, Addr: "xyz.cloud.qdrant.io:6334", APIKey: "k", Region: "us-east-1"}, true},
		{"cloud missing uri", ConnectConfig{Cloud: true, APIKey: "k"}, false},
		{"cloud missing key", ConnectConfig{Cloud: true, Addr: "xyz:6334"}, false},
		{"local with key", ConnectConfig{Addr: "localhost:6334", APIKey: "k"}, false},
		{"local missing addr", ConnectConfig{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, domain.ErrConfig) {
					t.Fatalf("expected ErrConfig, got %v", err)
				}
			}
		})
	}
}

func TestDial_InvalidConfig(t *testing.T) {
	_, err := ConnectConfig{Cloud: true}.Dial()
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestAPIKeyCreds(t *testing.T) {
	creds := apiKeyCreds{key: "secret"}
	md, err := creds.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md["api-key"] != "secret" {
		t.Fatalf("bad metadata: %v", md)
	}
	if !creds.RequireTransportSecurity() {
		t.Fatal("api-key credentials must require TLS")
	}
}
