// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogPath  string `mapstructure:"log_path"`

	DatabasePath string `mapstructure:"database_path" validate:"required"`

	// Transcription backend. An empty key leaves recording unavailable
	// until a key is stored via settings.
	DeepgramApiKey string `mapstructure:"deepgram_api_key"`

	// Summarization backend selection and credentials.
	SummaryProvider string `mapstructure:"summary_provider" validate:"oneof=anthropic openai"`
	SummaryModel    string `mapstructure:"summary_model"`
	AnthropicApiKey string `mapstructure:"anthropic_api_key"`
	OpenAIApiKey    string `mapstructure:"openai_api_key"`

	// Meeting activity detection.
	DetectionEnabled    bool `mapstructure:"detection_enabled"`
	DetectionIntervalMs int  `mapstructure:"detection_interval_ms" validate:"gte=0"`
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env varaibles.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values
	v.SetDefault("SERVICE_NAME", "meetscribe")
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 9180)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_PATH", "")

	v.SetDefault("DATABASE_PATH", "meetscribe.db")

	v.SetDefault("DEEPGRAM_API_KEY", "")
	v.SetDefault("SUMMARY_PROVIDER", "anthropic")
	v.SetDefault("SUMMARY_MODEL", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("OPENAI_API_KEY", "")

	v.SetDefault("DETECTION_ENABLED", true)
	v.SetDefault("DETECTION_INTERVAL_MS", 3000)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
