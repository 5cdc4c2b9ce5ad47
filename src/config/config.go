package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config структура конфигурации приложения
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	AI       AIConfig       `yaml:"ai"`
	Store    StoreConfig    `yaml:"store"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	YouTube  YouTubeConfig  `yaml:"youtube"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Mode        string   `yaml:"mode"` // debug, release, test
	CORSOrigins []string `yaml:"cors_origins"`
}

type AIConfig struct {
	BaseURL            string  `yaml:"base_url"`
	APIKey             string  `yaml:"api_key"`
	ChatModel          string  `yaml:"chat_model"`
	EmbeddingModel     string  `yaml:"embedding_model"`
	TranscriptionModel string  `yaml:"transcription_model"`
	TimeoutSecs        int     `yaml:"timeout"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	EmbedRPS           float64 `yaml:"embed_rps"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type PipelineConfig struct {
	IntervalSeconds float64        `yaml:"interval_seconds"`
	MatchThreshold  float64        `yaml:"match_threshold"`
	TopK            int            `yaml:"top_k"`
	IndexSegments   bool           `yaml:"index_segments"`
	ChunkSize       int            `yaml:"chunk_size"`
	ChunkOverlap    int            `yaml:"chunk_overlap"`
	Timeouts        TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig ограничения времени внешних вызовов, секунды
type TimeoutsConfig struct {
	Subtitles     int `yaml:"subtitles"`
	Download      int `yaml:"download"`
	Transcription int `yaml:"transcription"`
	Summary       int `yaml:"summary"`
	Store         int `yaml:"store"`
}

type YouTubeConfig struct {
	Language  string `yaml:"language"`
	YtDlpPath string `yaml:"ytdlp_path"`
	MediaDir  string `yaml:"media_dir"`
	UserAgent string `yaml:"user_agent"`
}

type CacheConfig struct {
	RedisURL   string `yaml:"redis_url"`
	TTLSecs    int    `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8000",
			Mode:        "release",
			CORSOrigins: []string{"*"},
		},
		AI: AIConfig{
			BaseURL:            "https://api.openai.com/v1",
			ChatModel:          "gpt-4o-mini",
			EmbeddingModel:     "text-embedding-3-small",
			TranscriptionModel: "whisper-1",
			TimeoutSecs:        120,
			MaxTokens:          512,
			Temperature:        0.2,
			EmbedRPS:           5,
		},
		Store: StoreConfig{Path: "./video_linker.db"},
		Pipeline: PipelineConfig{
			IntervalSeconds: 30,
			MatchThreshold:  0.01,
			TopK:            5,
			IndexSegments:   true,
			ChunkSize:       4000,
			ChunkOverlap:    200,
			Timeouts: TimeoutsConfig{
				Subtitles:     30,
				Download:      600,
				Transcription: 900,
				Summary:       600,
				Store:         300,
			},
		},
		YouTube: YouTubeConfig{
			Language:  "en",
			YtDlpPath: "yt-dlp",
		},
		Cache: CacheConfig{
			TTLSecs:    3600,
			MaxEntries: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load собирает конфигурацию: значения по умолчанию, затем YAML-файл
// (пустой путь - без файла), затем переменные окружения и .env
func Load(path string) (Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("ошибка парсинга YAML: %w", err)
		}
	}

	applyEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// applyEnv переменные окружения имеют приоритет над файлом
func applyEnv(config *Config) {
	overrides := map[string]*string{
		"AI_API_KEY":             &config.AI.APIKey,
		"AI_BASE_URL":            &config.AI.BaseURL,
		"AI_CHAT_MODEL":          &config.AI.ChatModel,
		"AI_EMBEDDING_MODEL":     &config.AI.EmbeddingModel,
		"AI_TRANSCRIPTION_MODEL": &config.AI.TranscriptionModel,
		"SERVER_ADDR":            &config.Server.Addr,
		"STORE_PATH":             &config.Store.Path,
		"REDIS_URL":              &config.Cache.RedisURL,
		"LOG_LEVEL":              &config.Logging.Level,
	}
	for key, target := range overrides {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*target = value
		}
	}
}

// Validate проверяет согласованность параметров
func (c Config) Validate() error {
	var errs []error
	p := c.Pipeline
	if p.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.interval_seconds должен быть положительным, получено %v", p.IntervalSeconds))
	}
	if p.MatchThreshold < 0 || p.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.match_threshold должен быть в диапазоне [0, 1], получено %v", p.MatchThreshold))
	}
	if p.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.top_k должен быть положительным, получено %d", p.TopK))
	}
	if p.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk_size должен быть положительным, получено %d", p.ChunkSize))
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		errs = append(errs, fmt.Errorf("pipeline.chunk_overlap должен быть меньше chunk_size"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path не задан"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: неизвестный формат %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("некорректная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

// Seconds переводит число секунд в time.Duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
