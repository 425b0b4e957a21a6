package semantic

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
)

// ConnectConfig selects between a local Qdrant instance and Qdrant Cloud.
// It is resolved once per process and passed to New; it is not ambient state.
type ConnectConfig struct {
	// Addr is the gRPC address: host:port for local, cluster URI for cloud.
	Addr   string
	Cloud  bool
	APIKey string
	Region string
}

// Validate fails fast on an invalid cloud/local combination.
func (c ConnectConfig) Validate() error {
	if c.Cloud {
		if c.Addr == "" {
			return fmt.Errorf("semantic: cloud mode requires --db_uri: %w", domain.ErrConfig)
		}
		if c.APIKey == "" {
			return fmt.Errorf("semantic: cloud mode requires --api_key: %w", domain.ErrConfig)
		}
		return nil
	}
	if c.APIKey != "" {
		return fmt.Errorf("semantic: --api_key is only valid with --cloud: %w", domain.ErrConfig)
	}
	if c.Addr == "" {
		return fmt.Errorf("semantic: local mode requires an address: %w", domain.ErrConfig)
	}
	return nil
}

// Dial opens the gRPC connection described by the config. Cloud connections
// use TLS and attach the api-key to every RPC; local connections are
// plaintext.
func (c ConnectConfig) Dial() (*grpc.ClientConn, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := []grpc.DialOption{}
	if c.Cloud {
		opts = append(opts,
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})),
			grpc.WithPerRPCCredentials(apiKeyCreds{key: c.APIKey}),
		)
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(c.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", c.Addr, err)
	}
	return conn, nil
}

// apiKeyCreds sends the Qdrant Cloud api-key as per-RPC metadata.
type apiKeyCreds struct {
	key string
}

func (a apiKeyCreds) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{"api-key": a.key}, nil
}

func (a apiKeyCreds) RequireTransportSecurity() bool { return true }
