package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"

	defaultMinVersion      = 1
	defaultRequestTimeout  = 600 * time.Second
	defaultSignAlgorithm   = "md5"
	defaultTokenTTL        = 2 * time.Hour
	defaultLockPrefix      = "lock:"
	defaultLockLease       = 60 * time.Second
	defaultLockWait        = 100 * time.Millisecond
	defaultRefreshWait     = 3 * time.Second
	defaultChannelCacheTTL = 5 * time.Minute
	defaultPassword        = "888888"
	defaultCodeTTL         = 5 * time.Minute
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		AutoMigrate bool   `json:"autoMigrate" yaml:"autoMigrate"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Protocol *ProtocolConfig `json:"protocol" yaml:"protocol"`

	Token *TokenConfig `json:"token" yaml:"token"`

	Lock *LockConfig `json:"lock" yaml:"lock"`

	// Channels holds the static channel -> backend routing used when the channel store has none
	Channels *ChannelsConfig `json:"channels" yaml:"channels"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	GoogleOAuth *GoogleOAuthConfig `json:"googleOAuth" yaml:"googleOAuth"`

	// PubSub configuration for login/logout event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RedisConfig configures the shared Redis client used for locks, caches and one-time codes
type RedisConfig struct {
	Addrs    []string `json:"addrs" yaml:"addrs"`
	Username string   `json:"username" yaml:"username"`
	Password string   `json:"password" yaml:"password"`
	DB       int      `json:"db" yaml:"db"`
	// Prefix is prepended to every key this service writes
	Prefix string `json:"prefix" yaml:"prefix"`
}

// ProtocolConfig controls request envelope verification
type ProtocolConfig struct {
	// MinVersion is the lowest accepted head.version
	MinVersion int `json:"minVersion" yaml:"minVersion"`

	// Timeout is the accepted age of head.time. Zero disables the freshness check.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// SignAlgorithm is "md5" or "sha256"
	SignAlgorithm string `json:"signAlgorithm" yaml:"signAlgorithm"`
}

// TokenConfig controls login session lifetime
type TokenConfig struct {
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// LockConfig controls the distributed lock used by token refresh
type LockConfig struct {
	Prefix string        `json:"prefix" yaml:"prefix"`
	Lease  time.Duration `json:"lease" yaml:"lease"`
	Wait   time.Duration `json:"wait" yaml:"wait"`

	// RefreshWait is how long a refresh waits for another instance's rotation of the same token
	RefreshWait time.Duration `json:"refreshWait" yaml:"refreshWait"`
}

// ChannelsConfig defines static channel settings.
// Map keys are channel codes written as strings, e.g. "1".
type ChannelsConfig struct {
	Backends map[string][]string `json:"backends" yaml:"backends"`
	Secrets  map[string]string   `json:"secrets" yaml:"secrets"`
	CacheTTL time.Duration       `json:"cacheTtl" yaml:"cacheTtl"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost      int    `json:"bcryptCost" yaml:"bcryptCost"`
	DefaultPassword string `json:"defaultPassword" yaml:"defaultPassword"`
	// CodeTTL is how long an issued one-time code stays valid
	CodeTTL time.Duration `json:"codeTtl" yaml:"codeTtl"`
}

type GoogleOAuthConfig struct {
	ClientID string `json:"clientId" yaml:"clientId"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP, "google" for Google Pub/Sub, empty disables publishing
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyDefaults fills every optional section so consumers never nil-check the config tree.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if cfg.Redis == nil {
		cfg.Redis = &RedisConfig{}
	}
	if len(cfg.Redis.Addrs) == 0 {
		cfg.Redis.Addrs = []string{"localhost:6379"}
	}

	if cfg.Protocol == nil {
		cfg.Protocol = &ProtocolConfig{Timeout: defaultRequestTimeout}
	}
	if cfg.Protocol.MinVersion < 1 {
		cfg.Protocol.MinVersion = defaultMinVersion
	}
	if cfg.Protocol.SignAlgorithm == "" {
		cfg.Protocol.SignAlgorithm = defaultSignAlgorithm
	}

	if cfg.Token == nil {
		cfg.Token = &TokenConfig{}
	}
	if cfg.Token.TTL <= 0 {
		cfg.Token.TTL = defaultTokenTTL
	}

	if cfg.Lock == nil {
		cfg.Lock = &LockConfig{}
	}
	if cfg.Lock.Prefix == "" {
		cfg.Lock.Prefix = defaultLockPrefix
	}
	if cfg.Lock.Lease <= 0 {
		cfg.Lock.Lease = defaultLockLease
	}
	if cfg.Lock.Wait <= 0 {
		cfg.Lock.Wait = defaultLockWait
	}
	if cfg.Lock.RefreshWait <= 0 {
		cfg.Lock.RefreshWait = defaultRefreshWait
	}

	if cfg.Channels == nil {
		cfg.Channels = &ChannelsConfig{}
	}
	if cfg.Channels.CacheTTL <= 0 {
		cfg.Channels.CacheTTL = defaultChannelCacheTTL
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{}
	}
	if cfg.Auth.DefaultPassword == "" {
		cfg.Auth.DefaultPassword = defaultPassword
	}
	if cfg.Auth.CodeTTL <= 0 {
		cfg.Auth.CodeTTL = defaultCodeTTL
	}

	if cfg.GoogleOAuth == nil {
		cfg.GoogleOAuth = &GoogleOAuthConfig{}
	}

	if cfg.PubSub == nil {
		cfg.PubSub = &PubSubConfig{}
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
