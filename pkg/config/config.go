package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		URL       string `yaml:"url"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"storage"`

	LLM struct {
		Provider    string  `yaml:"provider"` // "googleai" or "ollama"
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Extractor struct {
		EnableOCR       bool    `yaml:"enable_ocr"`
		OCRDPI          float64 `yaml:"ocr_dpi"`
		SparseTextLimit int     `yaml:"sparse_text_limit"`
	} `yaml:"extractor"`

	Chunker struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"chunker"`

	Fetcher struct {
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"fetcher"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docquery/config.yaml"),
			"/etc/docquery/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Storage.Endpoint == "" {
		config.Storage.Endpoint = "localhost:9000"
	}
	if config.Storage.AccessKey == "" {
		config.Storage.AccessKey = "minioadmin"
	}
	if config.Storage.SecretKey == "" {
		config.Storage.SecretKey = "minioadmin"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "googleai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gemini-2.0-flash"
		}
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}

	if config.Extractor.OCRDPI == 0 {
		config.Extractor.OCRDPI = 150
	}
	if config.Extractor.SparseTextLimit == 0 {
		config.Extractor.SparseTextLimit = 20
	}

	// Smaller than generic chunking defaults to favor retrieval precision.
	if config.Chunker.ChunkSize == 0 {
		config.Chunker.ChunkSize = 300
	}
	if config.Chunker.ChunkOverlap == 0 {
		config.Chunker.ChunkOverlap = 30
	}

	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if access := os.Getenv("MINIO_ACCESS_KEY"); access != "" {
		config.Storage.AccessKey = access
	}
	if secret := os.Getenv("MINIO_SECRET_KEY"); secret != "" {
		config.Storage.SecretKey = secret
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
}
