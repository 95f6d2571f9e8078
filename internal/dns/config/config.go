package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Servers lists upstream resolvers. A bare IP expands to UDP with a
	// TCP fallback; URL entries (udp://, tcp://, tls://, https://,
	// quic://) pin one protocol, with the fragment naming the certificate
	// the server must present. Entries sharing an address merge into one
	// server.
	Servers []string `koanf:"servers" validate:"required,min=1,dive,server_entry"`

	// Timeout bounds each exchange with an upstream server.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// Attempts is how many exchanges one server gets per lookup.
	Attempts int `koanf:"attempts" validate:"gte=1,lte=10"`

	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// DisableCache disables DNS response caching when set to true.
	// Useful for testing scenarios where cache behavior needs to be bypassed.
	DisableCache bool `koanf:"disable_cache"`

	// OpportunisticEncryption upgrades queries to an encrypted transport
	// once one has recently proven reachable for a server.
	OpportunisticEncryption bool `koanf:"opportunistic_encryption"`

	// EncryptionWindow is how long a recorded encrypted success keeps
	// steering queries toward that transport.
	EncryptionWindow time.Duration `koanf:"encryption_window" validate:"gt=0"`

	// MixCase randomizes query name casing on UDP exchanges so spoofed
	// answers also have to guess the casing.
	MixCase bool `koanf:"mix_case"`

	// HostsPath points at a hosts(5) file consulted before any network
	// traffic. Empty disables hosts lookups.
	HostsPath string `koanf:"hosts_path"`

	// StatePath is the bolt database where transport history persists
	// across runs. Empty keeps history in memory only.
	StatePath string `koanf:"state_path"`

	// ProxyAddr routes stream transports through a SOCKS5 proxy at
	// host:port. UDP cannot traverse the proxy, so UDP configs are
	// dropped while this is set.
	ProxyAddr string `koanf:"proxy_addr" validate:"omitempty,hostname_port"`
}

// DEFAULT_APP_CONFIG defines the default client configuration: Cloudflare
// and Quad9 over cleartext, with their TLS endpoints listed so
// opportunistic encryption has somewhere to upgrade to.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:      "prod",
	LogLevel: "info",
	Servers: []string{
		"1.1.1.1",
		"tls://1.1.1.1#cloudflare-dns.com",
		"9.9.9.9",
		"tls://9.9.9.9#dns.quad9.net",
	},
	Timeout:                 5 * time.Second,
	Attempts:                3,
	CacheSize:               1000,
	DisableCache:            false,
	OpportunisticEncryption: true,
	EncryptionWindow:        15 * time.Minute,
	MixCase:                 true,
	HostsPath:               "/etc/hosts",
	StatePath:               "",
	ProxyAddr:               "",
}

// validServerEntry validates one configured upstream entry by running it
// through the same parser the application uses, so anything that loads
// is guaranteed to parse later.
func validServerEntry(fl validator.FieldLevel) bool {
	_, err := domain.ParseServerEntry(fl.Field().String())
	return err == nil
}

// envLoader is a function that loads environment variables with the prefix "HDNS_".
// It transforms the keys to lowercase and removes the prefix.
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	// Load environment variables with prefix "HDNS_".
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "HDNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "HDNS_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf instance
// using the structs provider and the DEFAULT_APP_CONFIG struct. It returns an error
// if loading fails.
var defaultLoader = func(k *koanf.Koanf) error {
	// Load default values using structs provider.
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "server_entry" validation with
// the provided validator. Returns an error if registration fails.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("server_entry", validServerEntry)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	// Load environment variables with prefix "HDNS_", using koanf/providers/env/v2 and Opt pattern.
	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	// Unmarshal the loaded configuration into AppConfig struct.
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Validate the configuration.
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Register the custom validation function for server entries.
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
