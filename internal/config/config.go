package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
)

type Config struct {
	DB         config.DBConfig         `yaml:"db"`
	Redis      config.RedisConfig      `yaml:"redis"`
	MQ         config.MQConfig         `yaml:"mq"`
	JWT        config.JWTConfig        `yaml:"jwt"`
	Server     config.ServerConfig     `yaml:"server"`
	Classifier config.ClassifierConfig `yaml:"classifier"`
	Gating     config.GatingConfig     `yaml:"gating"`
	Scheduler  config.SchedulerConfig  `yaml:"scheduler"`
	Google     config.GoogleConfig     `yaml:"google"`
}

func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideClassifierFromEnv(&cfg.Classifier)
	config.OverrideGoogleFromEnv(&cfg.Google)

	return &cfg
}
