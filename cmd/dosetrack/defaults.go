package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Webhook server
	viper.SetDefault("server.bind", "127.0.0.1")
	viper.SetDefault("server.port", 8980)

	// Storage
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.auto_migrate", true)
	viper.SetDefault("db.busy_timeout_ms", 5000)

	// Media ingestion
	viper.SetDefault("media.dir", "~/.dosetrack/media")
	viper.SetDefault("media.max_bytes", int64(20*1024*1024))
	viper.SetDefault("media.download_timeout", 60*time.Second)

	// Note timestamps render in this zone ("" = system local).
	viper.SetDefault("time.location", "")
}
