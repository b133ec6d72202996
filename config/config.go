// Package config loads the Dual-Worker Orchestrator's configuration from
// the environment, per spec.md §6.2. Unlike the upstream AgentFlow config
// package this is env-only: the spec names no YAML file surface, so the
// nested-prefix composition and file-layer of the original Loader are
// dropped, but its general shape — a struct of `env`-tagged fields walked
// with reflection — is kept.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Config is the complete runtime configuration for the orchestrator
// service, one field per spec.md §6.2 entry plus the ambient additions
// named in SPEC_FULL.md §6.
type Config struct {
	Speaker     SpeakerConfig
	Executive   ExecutiveConfig
	Embedding   EmbeddingConfig
	Postgres    PostgresConfig
	Orchestrator OrchestratorConfig
	Cache       CacheConfig
	Server      ServerConfig
	Log         LogConfig
	Telemetry   TelemetryConfig
	Debug       bool `env:"DEBUG"`
}

// SpeakerConfig configures the Speaker worker's LLM adapter. Provider/
// BaseURL are ambient additions: spec.md §6.2 names only SPEAKER_MODEL,
// but llm/factory.NewProviderFromConfig needs to know which adapter
// constructor to call. Provider defaults to a prefix guess off Model
// (see ProviderFromModel) when left unset.
type SpeakerConfig struct {
	Model    string `env:"SPEAKER_MODEL"`
	Provider string `env:"SPEAKER_PROVIDER"`
	BaseURL  string `env:"SPEAKER_BASE_URL"`
	APIKey   string `env:"SPEAKER_API_KEY"`
}

// ExecutiveConfig configures the Executive worker's LLM adapter.
type ExecutiveConfig struct {
	Model    string `env:"EXECUTIVE_MODEL"`
	Provider string `env:"EXECUTIVE_PROVIDER"`
	BaseURL  string `env:"EXECUTIVE_BASE_URL"`
	APIKey   string `env:"EXECUTIVE_API_KEY"`
}

// EmbeddingConfig configures the embedding provider (C1).
type EmbeddingConfig struct {
	Model     string `env:"EMBEDDING_MODEL"`
	Dimension int    `env:"EMBEDDING_DIMENSION"`
	Provider  string `env:"EMBEDDING_PROVIDER"`
	BaseURL   string `env:"EMBEDDING_BASE_URL"`
	// DefaultAPIKey is the API key used for outbound LLM/embedding calls
	// when a provider-specific key is not separately configured
	// (spec.md §6.2: "Default upstream LLM key").
	DefaultAPIKey string `env:"DEFAULT_API_KEY"`
}

// ProviderFromModel guesses a built-in llm/factory provider name from a
// model identifier when no explicit *_PROVIDER override is set, so a
// plain SPEAKER_MODEL=claude-3-opus-20240229 works without also setting
// SPEAKER_PROVIDER. Falls through to "openai" (the generic OpenAI-
// compatible adapter) for anything unrecognized.
func ProviderFromModel(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude"):
		return "anthropic"
	case strings.Contains(lower, "gemini"):
		return "gemini"
	default:
		return "openai"
	}
}

// PostgresConfig configures the graph store driver (C2). The env var
// names are carried verbatim from spec.md §6.2's Neo4j-shaped external
// interface (`NEO4J_URL`/`NEO4J_USER`/`NEO4J_PASSWORD`) even though the
// concrete collaborator behind graphstore.Store is Postgres+pgvector
// (SPEC_FULL.md §4.2) — the orchestrator never speaks Cypher, so these
// three values are read as a connection string and overlaid credentials
// rather than a graph-protocol endpoint.
type PostgresConfig struct {
	URL      string `env:"NEO4J_URL"`
	User     string `env:"NEO4J_USER"`
	Password string `env:"NEO4J_PASSWORD"`
}

// DSN composes a libpq connection string from the configured URL and
// credentials. If URL already looks like a postgres:// DSN it is
// returned unmodified; otherwise URL is treated as a host[:port] and the
// user/password are folded in.
func (p PostgresConfig) DSN() string {
	if strings.HasPrefix(p.URL, "postgres://") || strings.HasPrefix(p.URL, "postgresql://") {
		return p.URL
	}
	if p.URL == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s/orchestrator?sslmode=disable", p.User, p.Password, p.URL)
}

// OrchestratorConfig configures C6's re-evaluation cadence, cancellation
// grace period, and per-request wall-clock timeout (SPEC_FULL.md §5, §9).
type OrchestratorConfig struct {
	ReevalStride           int `env:"REEVAL_STRIDE"`
	CancelGraceMillis      int `env:"T_CANCEL_MS"`
	RequestTimeoutSeconds  int `env:"REQUEST_TIMEOUT_SECONDS"`
}

// CacheConfig configures the in-process embedding cache (C10).
type CacheConfig struct {
	MaxEntries int `env:"CACHE_MAX_ENTRIES"`
}

// ServerConfig configures the HTTP listener (C8/C12) and the ambient
// middleware stack (CORS, rate limiting, timeouts) carried from the
// teacher regardless of spec.md's Non-goals around HTTP minutiae.
type ServerConfig struct {
	Addr               string        `env:"HTTP_ADDR"`
	MetricsAddr        string        `env:"METRICS_ADDR"`
	APIKeys            []string      `env:"API_KEYS"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST"`
	ReadTimeoutSeconds int           `env:"HTTP_READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds int          `env:"HTTP_WRITE_TIMEOUT_SECONDS"`
	IdleTimeoutSeconds int           `env:"HTTP_IDLE_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int       `env:"HTTP_SHUTDOWN_TIMEOUT_SECONDS"`
}

// ReadTimeout, WriteTimeout, IdleTimeout, and ShutdownTimeout convert the
// *Seconds fields to time.Duration for internal/server.Manager.
func (s ServerConfig) ReadTimeout() time.Duration  { return time.Duration(s.ReadTimeoutSeconds) * time.Second }
func (s ServerConfig) WriteTimeout() time.Duration { return time.Duration(s.WriteTimeoutSeconds) * time.Second }
func (s ServerConfig) IdleTimeout() time.Duration  { return time.Duration(s.IdleTimeoutSeconds) * time.Second }
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig configures structured logging (C0b).
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"`
}

// TelemetryConfig configures the optional OTel trace/metric exporters
// carried from the teacher's observability stack. Not named in spec.md
// §6.2; disabled by default so the orchestrator never blocks on an
// unreachable collector.
type TelemetryConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED"`
	OTLPEndpoint string  `env:"OTEL_ENDPOINT"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME"`
	SampleRate   float64 `env:"OTEL_SAMPLE_RATE"`
}

// Default returns the configuration's zero-value-safe defaults, applied
// before environment overrides.
func Default() *Config {
	return &Config{
		Speaker:   SpeakerConfig{Model: "gpt-4o"},
		Executive: ExecutiveConfig{Model: "gpt-4o-mini"},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", Dimension: 1536},
		Orchestrator: OrchestratorConfig{
			ReevalStride: 100, CancelGraceMillis: 500, RequestTimeoutSeconds: 120,
		},
		Server: ServerConfig{
			Addr: ":8080", MetricsAddr: ":9090",
			RateLimitRPS: 50, RateLimitBurst: 100,
			ReadTimeoutSeconds: 30, WriteTimeoutSeconds: 60, IdleTimeoutSeconds: 120, ShutdownTimeoutSeconds: 15,
		},
		Log:    LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			ServiceName: "orchestrator", SampleRate: 0.1,
		},
	}
}

// Load builds a Config from defaults overridden by the environment.
// There is no YAML file layer: spec.md §6.2 specifies only environment
// variables, so the teacher's "defaults -> file -> env" precedence chain
// is simplified to "defaults -> env".
func Load() (*Config, error) {
	cfg := Default()
	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config: failed to load from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// setFieldsFromEnv recursively walks v, setting any field carrying a
// non-empty `env` tag from os.Getenv. Unlike the teacher's Loader, no
// prefix is composed when descending into nested structs: every field's
// tag already holds its full, literal environment variable name, because
// spec.md §6.2 names flat, unprefixed variables rather than a
// hierarchical namespace.
func setFieldsFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envTag, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(n)
		}
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Validate checks invariants Load cannot express through zero values
// alone.
func (c *Config) Validate() error {
	var errs []string
	if c.Embedding.Dimension <= 0 {
		errs = append(errs, "EMBEDDING_DIMENSION must be positive")
	}
	if c.Orchestrator.ReevalStride <= 0 {
		errs = append(errs, "REEVAL_STRIDE must be positive")
	}
	if c.Orchestrator.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Timeout converts RequestTimeoutSeconds into a time.Duration.
func (o OrchestratorConfig) Timeout() time.Duration {
	return time.Duration(o.RequestTimeoutSeconds) * time.Second
}

// CancelGrace converts CancelGraceMillis into a time.Duration.
func (o OrchestratorConfig) CancelGrace() time.Duration {
	return time.Duration(o.CancelGraceMillis) * time.Millisecond
}
