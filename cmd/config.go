package main

import "time"

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	DebounceWindow    time.Duration `env:"DEBOUNCE_WINDOW,default=100ms"`
	ImageQuality      int           `env:"IMAGE_QUALITY,default=5"`
	BlobBaseURL       string        `env:"BLOB_BASE_URL,default=http://localhost:8080"`
	HTTPPort          int           `env:"HTTP_PORT,default=8080"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=720h"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	// Empty disables the relay
	NatsURL string `env:"NATS_URL"`
}
