package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-soap-http/pkg/ntlm"
)

// Config is the client configuration. The zero value is usable after
// applyDefaults; DefaultConfig returns a ready-made one.
type Config struct {
	// UserAgent overrides DefaultUserAgent when set.
	UserAgent string `yaml:"userAgent"`

	// PersistentConnection selects Connection: keep-alive on composed
	// requests instead of close.
	PersistentConnection bool `yaml:"persistentConnection"`

	// NTLM enables the transparent NTLM handshake before each request.
	NTLM *ntlm.Credentials `yaml:"ntlm"`

	Timeout         time.Duration `yaml:"timeout"`
	IdleConnTimeout time.Duration `yaml:"idleConnTimeout"`

	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig holds the default executor's TLS tuning.
type TLSConfig struct {
	// MinVersion and MaxVersion are "1.2" or "1.3"; unset means the
	// executor defaults (1.2 through 1.3).
	MinVersion string `yaml:"minVersion"`
	MaxVersion string `yaml:"maxVersion"`

	// CertFile/KeyFile configure a client certificate; both or neither.
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`

	// CAFile adds a PEM bundle of trusted roots.
	CAFile string `yaml:"caFile"`
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads a Config from a YAML file. Environment variables in
// ${VAR} or $VAR form are expanded before parsing, so credentials can
// be injected at runtime.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

func (c *Config) validate() error {
	if c.NTLM != nil && c.NTLM.Username == "" {
		return fmt.Errorf("ntlm credentials require a username")
	}
	if _, err := tlsVersion(c.TLS.MinVersion, TLS12); err != nil {
		return fmt.Errorf("tls.minVersion: %w", err)
	}
	if _, err := tlsVersion(c.TLS.MaxVersion, TLS13); err != nil {
		return fmt.Errorf("tls.maxVersion: %w", err)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.certFile and tls.keyFile must be set together")
	}
	return nil
}

// executorConfig materializes the executor settings, loading any
// configured certificate material from disk.
func (c *Config) executorConfig() (*ExecutorConfig, error) {
	config := DefaultExecutorConfig()
	config.Timeout = c.Timeout
	config.IdleConnTimeout = c.IdleConnTimeout

	var err error
	if config.MinTLSVersion, err = tlsVersion(c.TLS.MinVersion, TLS12); err != nil {
		return nil, err
	}
	if config.MaxTLSVersion, err = tlsVersion(c.TLS.MaxVersion, TLS13); err != nil {
		return nil, err
	}

	if c.TLS.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		config.Certificates = []tls.Certificate{cert}
	}

	if c.TLS.CAFile != "" {
		pem, err := os.ReadFile(c.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.TLS.CAFile)
		}
		config.RootCAs = pool
	}

	return config, nil
}

func tlsVersion(s string, fallback uint16) (uint16, error) {
	switch s {
	case "":
		return fallback, nil
	case "1.2":
		return TLS12, nil
	case "1.3":
		return TLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", s)
	}
}
