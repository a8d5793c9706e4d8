package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Telegram
	viper.SetDefault("telegram.token_file", ".token.txt")
	viper.SetDefault("telegram.user_id_file", ".user_id.txt")
	viper.SetDefault("telegram.poll_timeout", 60*time.Second)
	viper.SetDefault("telegram.max_concurrency", 2)

	// Substitution rules
	viper.SetDefault("rules.file", ".actions.yaml")

	// Ops server
	viper.SetDefault("ops.enabled", true)
	viper.SetDefault("ops.bind", "127.0.0.1:8753")
}
