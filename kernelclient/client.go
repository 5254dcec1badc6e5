// Package kernelclient dials the ledger endpoint the kernel contracts live on.
package kernelclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrNoEndpoint   = errors.New("kernelclient: no endpoint configured")
	ErrInvalidToken = errors.New("kernelclient: jwt secret must be 32 hex-encoded bytes")
)

// Config is the ledger connection configuration used by gkernel.
type Config struct {
	Endpoint       string
	JWTSecretFile  string `toml:",omitempty"`
	RequestTimeout time.Duration
}

var DefaultConfig = Config{
	Endpoint:       "http://127.0.0.1:8545",
	JWTSecretFile:  "",
	RequestTimeout: 30 * time.Second,
}

// Client is a ledger connection.
type Client struct {
	*ethclient.Client
	cfg Config
}

// Dial connects to cfg.Endpoint. HTTP requests carry a fresh HS256 bearer
// token when cfg.JWTSecretFile is set and are bounded by cfg.RequestTimeout.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	var opts []rpc.ClientOption
	if cfg.RequestTimeout > 0 {
		opts = append(opts, rpc.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	if cfg.JWTSecretFile != "" {
		secret, err := loadJWTSecret(cfg.JWTSecretFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rpc.WithHTTPAuth(newJWTAuth(secret)))
	}
	raw, err := rpc.DialOptions(ctx, cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}
	log.Debug("Connected to ledger", "endpoint", cfg.Endpoint, "auth", cfg.JWTSecretFile != "")
	return &Client{Client: ethclient.NewClient(raw), cfg: cfg}, nil
}

func (c *Client) Config() Config {
	return c.cfg
}

func loadJWTSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jwt secret: %w", err)
	}
	secret := common.FromHex(strings.TrimSpace(string(data)))
	if len(secret) != 32 {
		return nil, ErrInvalidToken
	}
	return secret, nil
}

func newJWTAuth(secret []byte) rpc.HTTPAuth {
	return func(h http.Header) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		})
		signed, err := token.SignedString(secret)
		if err != nil {
			return fmt.Errorf("failed to create JWT token: %w", err)
		}
		h.Set("Authorization", "Bearer "+signed)
		return nil
	}
}
