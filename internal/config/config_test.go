package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "idea_analyzer", cfg.Database.Database)
				assert.Equal(t, "extractions", cfg.RabbitMQ.Exchange)
				assert.Equal(t, "extraction_jobs", cfg.RabbitMQ.Queue)
				assert.Equal(t, "idea-analyzer-api", cfg.App.Name)
				assert.Equal(t, 4, cfg.Worker.Concurrency)
				assert.Equal(t, 20*time.Second, cfg.Extractor.FetchTimeout)
				assert.Equal(t, "en", cfg.Extractor.CaptionLanguage)
				assert.Equal(t, 2, cfg.Extractor.Whisper.MaxConcurrent)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Run("extractor defaults are applied", func(t *testing.T) {
		cfg := &Config{}
		cfg.applyDefaults()

		assert.Equal(t, 30*time.Second, cfg.Extractor.FetchTimeout)
		assert.Equal(t, "en", cfg.Extractor.CaptionLanguage)
		assert.NotEmpty(t, cfg.Extractor.UploadDir)
		assert.Equal(t, "whisper", cfg.Extractor.Whisper.Binary)
		assert.Equal(t, "base", cfg.Extractor.Whisper.Model)
		assert.Equal(t, 1, cfg.Extractor.Whisper.MaxConcurrent)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := &Config{
			Extractor: ExtractorConfig{
				FetchTimeout:    10 * time.Second,
				CaptionLanguage: "de",
				Whisper: WhisperConfig{
					Binary:        "/opt/whisper/bin/whisper",
					Model:         "small",
					MaxConcurrent: 3,
				},
			},
		}
		cfg.applyDefaults()

		assert.Equal(t, 10*time.Second, cfg.Extractor.FetchTimeout)
		assert.Equal(t, "de", cfg.Extractor.CaptionLanguage)
		assert.Equal(t, "/opt/whisper/bin/whisper", cfg.Extractor.Whisper.Binary)
		assert.Equal(t, "small", cfg.Extractor.Whisper.Model)
		assert.Equal(t, 3, cfg.Extractor.Whisper.MaxConcurrent)
	})
}

func validTestConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "idea_analyzer",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: "extractions",
			Queue:    "extraction_jobs",
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			PrefetchCount:   8,
			JobTimeout:      10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(cfg *Config) { cfg.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(cfg *Config) { cfg.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(cfg *Config) { cfg.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(cfg *Config) { cfg.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Exchange = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "empty queue name",
			mutate:    func(cfg *Config) { cfg.RabbitMQ.Queue = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name: "redis enabled without host",
			mutate: func(cfg *Config) {
				cfg.Redis.Enabled = true
				cfg.Redis.EventsChannel = "extraction_events"
			},
			wantErr:   true,
			errString: "redis host is required",
		},
		{
			name: "redis enabled without events channel",
			mutate: func(cfg *Config) {
				cfg.Redis.Enabled = true
				cfg.Redis.Host = "localhost"
			},
			wantErr:   true,
			errString: "redis events_channel is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name:      "zero concurrency",
			mutate:    func(cfg *Config) { cfg.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "worker concurrency must be greater than 0",
		},
		{
			name:      "zero prefetch count",
			mutate:    func(cfg *Config) { cfg.Worker.PrefetchCount = 0 },
			wantErr:   true,
			errString: "worker prefetch_count must be greater than 0",
		},
		{
			name:      "zero job timeout",
			mutate:    func(cfg *Config) { cfg.Worker.JobTimeout = 0 },
			wantErr:   true,
			errString: "worker job_timeout must be greater than 0",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(cfg *Config) { cfg.Worker.ShutdownTimeout = 0 },
			wantErr:   true,
			errString: "worker shutdown_timeout must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
