package main

import "time"

type Config struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=6060"`
	LogLevel  string `env:"LOG_LEVEL,required=true"`

	RedisAddr     string `env:"REDIS_ADDR,required=true"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	JWTKey       string `env:"JWT_KEY,required=true"`
	WorkerSecret string `env:"WORKER_SECRET,required=true"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	StoreWriteTimeout    time.Duration `env:"STORE_WRITE_TIMEOUT,default=3s"`
	StoreFailureCeiling  int           `env:"STORE_FAILURE_CEILING,default=5"`
	ProbeBaseInterval    time.Duration `env:"PROBE_BASE_INTERVAL,default=5s"`
	ProbeMaxInterval     time.Duration `env:"PROBE_MAX_INTERVAL,default=1m"`
	ProbePingTimeout     time.Duration `env:"PROBE_PING_TIMEOUT,default=2s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s"`
}
