package main

import "time"

type Config struct {
	LogLevel string `env:"LOG_LEVEL,required=true"`

	ServerURL    string `env:"SERVER_URL,required=true"`
	WorkerSecret string `env:"WORKER_SECRET,required=true"`

	RedisAddr     string `env:"REDIS_ADDR,required=true"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	GatewayURL     string        `env:"GATEWAY_URL,required=true"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT,default=2m"`

	ResultBufferSize  int           `env:"RESULT_BUFFER_SIZE,default=64"`
	PopTimeout        time.Duration `env:"POP_TIMEOUT,default=5s"`
	ResultSendTimeout time.Duration `env:"RESULT_SEND_TIMEOUT,default=10s"`
	BridgeMinBackoff  time.Duration `env:"BRIDGE_MIN_BACKOFF,default=500ms"`
	BridgeMaxBackoff  time.Duration `env:"BRIDGE_MAX_BACKOFF,default=30s"`
}
