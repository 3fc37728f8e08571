package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings holds the full runtime configuration, sourced from the process
// environment with optional env.txt / .env file overlays. Real environment
// variables always win over file values.
type Settings struct {
	AIProvider         string `envconfig:"AI_PROVIDER" default:"anthropic"`
	AnthropicAPIKey    string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel     string `envconfig:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest"`
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel        string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	GeminiModel        string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OllamaModel        string `envconfig:"OLLAMA_MODEL" default:"llama3"`
	OllamaBaseURL      string `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434"`
	MultiStep          string `envconfig:"AI_MULTI_STEP" default:"auto"`
	MultiStepThreshold int    `envconfig:"AI_MULTI_STEP_THRESHOLD" default:"8192"`
	DebugCapture       bool   `envconfig:"AI_DEBUG_CAPTURE" default:"false"`
	DummyAnalysis      bool   `envconfig:"AI_DUMMY_ANALYSIS" default:"false"`
	DataDir            string `envconfig:"NEWSTRADER_DATA_DIR" default:"data"`
	DBName             string `envconfig:"NEWSTRADER_DB_NAME" default:"newstrader.db"`
	Port               int    `envconfig:"NEWSTRADER_PORT" default:"8000"`
}

// Load reads env files and the process environment into Settings.
func Load() (Settings, error) {
	LoadEnvFiles()
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return s, fmt.Errorf("process environment: %w", err)
	}
	return s, nil
}

// LoadEnvFiles overlays env.txt and .env from the working directory when
// present. godotenv never overrides variables already set in the environment.
func LoadEnvFiles() {
	for _, name := range []string{"env.txt", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// ModelForProvider returns the configured model for the active provider.
func (s Settings) ModelForProvider() string {
	switch strings.ToLower(strings.TrimSpace(s.AIProvider)) {
	case "openai", "chatgpt":
		return s.OpenAIModel
	case "gemini", "google":
		return s.GeminiModel
	case "ollama":
		return s.OllamaModel
	default:
		return s.AnthropicModel
	}
}

// APIKeyForProvider returns the credential for the active provider. Ollama
// needs none and returns an empty string.
func (s Settings) APIKeyForProvider() string {
	switch strings.ToLower(strings.TrimSpace(s.AIProvider)) {
	case "openai", "chatgpt":
		return s.OpenAIAPIKey
	case "gemini", "google":
		return s.GeminiAPIKey
	case "ollama":
		return ""
	default:
		return s.AnthropicAPIKey
	}
}

// BaseURLForProvider returns the endpoint override for the active provider.
// Only Ollama talks to a configurable local endpoint; the cloud backends must
// keep their SDK defaults, so this returns empty for them.
func (s Settings) BaseURLForProvider() string {
	if strings.ToLower(strings.TrimSpace(s.AIProvider)) == "ollama" {
		return s.OllamaBaseURL
	}
	return ""
}

// DisplayName renders the active backend and model for report headers and
// log lines, e.g. "Claude (claude-3-5-haiku-latest)".
func (s Settings) DisplayName() string {
	name := "Claude"
	switch strings.ToLower(strings.TrimSpace(s.AIProvider)) {
	case "openai", "chatgpt":
		name = "ChatGPT"
	case "gemini", "google":
		name = "Gemini"
	case "ollama":
		name = "Ollama"
	}
	return fmt.Sprintf("%s (%s)", name, s.ModelForProvider())
}

// DBPath joins the data directory and database name.
func (s Settings) DBPath() string {
	return filepath.Join(s.DataDir, s.DBName)
}
