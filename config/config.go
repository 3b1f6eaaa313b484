// Package config loads answermesh settings from an optional dotenv file and
// the environment. Environment variables override the file; both override
// the defaults. Nothing outside cmd/ reads the environment directly: settings
// are passed explicitly into constructors.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Secret is a sensitive value that redacts itself when printed.
type Secret string

// Value returns the raw secret.
func (s Secret) Value() string { return string(s) }

// IsSet reports whether the secret is non-empty.
func (s Secret) IsSet() bool { return s != "" }

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "********"
}

// GoString implements fmt.GoStringer so %#v redacts as well.
func (s Secret) GoString() string { return `config.Secret("********")` }

// Result store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Model providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// ErrInvalidSettings is wrapped by every Validate error.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the complete runtime configuration.
type Settings struct {
	ScoringAPIBaseURL string
	ChessEvalURL      string

	GeminiAPIKey      Secret
	OpenRouterAPIKey  Secret
	OpenRouterBaseURL string
	AnthropicAPIKey   Secret
	SerperAPIKey      Secret

	SpaceID  string
	Username string

	ModelProvider   string
	ManagerModel    string
	ResearcherModel string
	ChessModel      string
	ConvertModel    string
	MediaModel      string
	MaxSteps        int
	Temperature     float64
	ModelTimeout    time.Duration
	MaxConcurrency  int

	ResultStore    string
	ResultStoreDSN string
	DownloadDir    string
	LocalFilesDir  string
	QuestionsCache string
	LocalFallback  bool

	LogLevel   string
	LogFormat  string
	LogBackend string
	// LogFile redirects logs to a size rotated file. Empty logs to stderr.
	LogFile    string
}

var defaults = map[string]any{
	"scoring_api_base_url": "https://agents-course-unit4-scoring.hf.space",
	"chess_eval_url":       "https://stockfish.online/api/s/v2.php",
	"openrouter_base_url":  "https://openrouter.ai/api/v1",
	"model_provider":       ProviderOpenRouter,
	"manager_model":        "openai/o4-mini",
	"researcher_model":     "openai/o4-mini-high",
	"chess_model":          "openai/o4-mini",
	"convert_model":        "openai/o4-mini",
	"media_model":          "gemini-2.0-flash",
	"max_steps":            10,
	"temperature":          0.0,
	"model_timeout":        "180s",
	"max_concurrency":      0,
	"result_store":         StoreFile,
	"result_store_dsn":     ".",
	"download_dir":         "downloads",
	"local_files_dir":      "files",
	"questions_cache":      "questions.json",
	"local_fallback":       false,
	"log_level":            "info",
	"log_format":           "text",
	"log_backend":          "slog",
	"log_file":             "",
}

// Options configures Load.
type Options struct {
	// EnvFile is an optional dotenv file. A missing file is not an error.
	// Defaults to ".env".
	EnvFile string
	// Fs is the filesystem the env file is read from. Defaults to the OS
	// filesystem.
	Fs afero.Fs
	// LookupEnv overrides environment lookup. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load reads the settings.
func Load(optFns ...func(o *Options)) (*Settings, error) {
	opts := Options{
		EnvFile:   ".env",
		Fs:        afero.NewOsFs(),
		LookupEnv: os.LookupEnv,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	v := viper.New()
	v.SetFs(opts.Fs)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if opts.EnvFile != "" {
		v.SetConfigFile(opts.EnvFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", opts.EnvFile, err)
		}
	}

	// Environment overrides the file. Values are copied explicitly so a
	// custom LookupEnv works the same way as the process environment.
	for _, key := range append(keys(), secretKeys...) {
		if value, ok := opts.LookupEnv(strings.ToUpper(key)); ok {
			v.Set(key, value)
		}
	}

	s := &Settings{
		ScoringAPIBaseURL: v.GetString("scoring_api_base_url"),
		ChessEvalURL:      v.GetString("chess_eval_url"),
		GeminiAPIKey:      Secret(v.GetString("gemini_api_key")),
		OpenRouterAPIKey:  Secret(v.GetString("openrouter_api_key")),
		OpenRouterBaseURL: v.GetString("openrouter_base_url"),
		AnthropicAPIKey:   Secret(v.GetString("anthropic_api_key")),
		SerperAPIKey:      Secret(v.GetString("serper_api_key")),
		SpaceID:           v.GetString("space_id"),
		Username:          v.GetString("username"),
		ModelProvider:     strings.ToLower(v.GetString("model_provider")),
		ManagerModel:      v.GetString("manager_model"),
		ResearcherModel:   v.GetString("researcher_model"),
		ChessModel:        v.GetString("chess_model"),
		ConvertModel:      v.GetString("convert_model"),
		MediaModel:        v.GetString("media_model"),
		MaxSteps:          v.GetInt("max_steps"),
		Temperature:       v.GetFloat64("temperature"),
		ModelTimeout:      v.GetDuration("model_timeout"),
		MaxConcurrency:    v.GetInt("max_concurrency"),
		ResultStore:       strings.ToLower(v.GetString("result_store")),
		ResultStoreDSN:    v.GetString("result_store_dsn"),
		DownloadDir:       v.GetString("download_dir"),
		LocalFilesDir:     v.GetString("local_files_dir"),
		QuestionsCache:    v.GetString("questions_cache"),
		LocalFallback:     v.GetBool("local_fallback"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		LogBackend:        v.GetString("log_backend"),
		LogFile:           v.GetString("log_file"),
	}

	return s, nil
}

var secretKeys = []string{"gemini_api_key", "openrouter_api_key", "anthropic_api_key", "serper_api_key", "space_id", "username"}

func keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	return out
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate reports missing or inconsistent settings required to run agents.
func (s *Settings) Validate() error {
	var problems []string

	switch s.ModelProvider {
	case ProviderOpenRouter:
		if !s.OpenRouterAPIKey.IsSet() {
			problems = append(problems, "OPENROUTER_API_KEY is required for provider openrouter")
		}
	case ProviderAnthropic:
		if !s.AnthropicAPIKey.IsSet() {
			problems = append(problems, "ANTHROPIC_API_KEY is required for provider anthropic")
		}
	default:
		problems = append(problems, fmt.Sprintf("MODEL_PROVIDER %q is not supported", s.ModelProvider))
	}

	if !s.SerperAPIKey.IsSet() {
		problems = append(problems, "SERPER_API_KEY is required")
	}
	if !s.GeminiAPIKey.IsSet() {
		problems = append(problems, "GEMINI_API_KEY is required")
	}
	if s.MaxSteps <= 0 {
		problems = append(problems, "MAX_STEPS must be positive")
	}
	if s.ModelTimeout <= 0 {
		problems = append(problems, "MODEL_TIMEOUT must be positive")
	}
	if s.MaxConcurrency < 0 {
		problems = append(problems, "MAX_CONCURRENCY must not be negative")
	}

	switch s.ResultStore {
	case StoreFile, StoreSQLite, StoreRedis, StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("RESULT_STORE %q is not supported", s.ResultStore))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateSubmit reports settings missing for a submission.
func (s *Settings) ValidateSubmit() error {
	if s.SpaceID == "" {
		return fmt.Errorf("%w: SPACE_ID is required to submit", ErrInvalidSettings)
	}
	return nil
}
