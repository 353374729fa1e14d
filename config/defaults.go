package config

import "time"

// DefaultConfig 零配置即可在本地 SQLite 上运行；Redis、遥测与 JWT 默认关闭
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9091,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute, // 覆盖一次完整的生成重试循环
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-3.5-turbo",
			Temperature: 1,
			Timeout:     time.Minute,
			MaxAttempts: 3,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Host:            "localhost",
			Port:            5432,
			User:            "quizflow",
			Name:            "quizflow.db",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			TTL:          10 * time.Minute,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: true,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			Insecure:     true,
			ServiceName:  "quizflow",
			SampleRate:   0.1,
		},
		JWT: JWTConfig{Issuer: "quizflow"},
	}
}

func DefaultServerConfig() ServerConfig       { return DefaultConfig().Server }
func DefaultLLMConfig() LLMConfig             { return DefaultConfig().LLM }
func DefaultDatabaseConfig() DatabaseConfig   { return DefaultConfig().Database }
func DefaultRedisConfig() RedisConfig         { return DefaultConfig().Redis }
func DefaultLogConfig() LogConfig             { return DefaultConfig().Log }
func DefaultTelemetryConfig() TelemetryConfig { return DefaultConfig().Telemetry }
