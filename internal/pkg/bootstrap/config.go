// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置根。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

// AppConfig 业务侧配置。
type AppConfig struct {
	FeatureFlags FeatureFlags `yaml:"feature_flags"`

	// PollIntervalMS 是跟踪轮询器的节拍，默认 3000ms。
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// FailureAlertThreshold 连续拉取失败多少次后发一条告警通知。
	FailureAlertThreshold int `yaml:"failure_alert_threshold"`

	// NotificationRules 是 CEL 表达式列表，命中任意一条的通知会被静音。
	NotificationRules []string `yaml:"notification_rules"`
}

// FeatureFlags 功能开关。
type FeatureFlags struct {
	EnableWatchLock   bool `yaml:"enable_watch_lock"`   // 多副本下用 ZK 锁抢占订单
	EnablePushGateway bool `yaml:"enable_push_gateway"` // 推送网关会话登记
}

// InfraConfig 基础设施配置。
type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		NotificationTopic string   `yaml:"notification_topic"`
		StatusTopic       string   `yaml:"status_topic"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Mysql struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Zookeeper struct {
		Servers []string `yaml:"servers"`
	} `yaml:"zookeeper"`
	OrderAPI struct {
		BaseURL string `yaml:"base_url"` // 外部订单/配送 API 的入口
	} `yaml:"order_api"`
	AdminAPI struct {
		BaseURL string `yaml:"base_url"` // 外部后台变更 API 的入口
	} `yaml:"admin_api"`
}

var currentConfig atomic.Value // *Config

// Init 加载配置：YAML 文件打底，环境变量覆盖关键地址。
// 找不到配置文件时退回默认值，方便本地起服务。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
	} else {
		log.Printf("WARN: config file %s not readable (%v), using defaults", path, err)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	cfg, _ := currentConfig.Load().(*Config)
	if cfg == nil {
		// 单测等场景未显式 Init 时兜底
		cfg = defaultConfig()
		currentConfig.Store(cfg)
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.PollIntervalMS = 3000
	cfg.App.FailureAlertThreshold = 5
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.NotificationTopic = "delivery-notifications"
	cfg.Infra.Kafka.StatusTopic = "delivery-status-changes"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.OrderAPI.BaseURL = "http://localhost:9000"
	cfg.Infra.AdminAPI.BaseURL = "http://localhost:9001"
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("ZK_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("ORDER_API_BASE_URL"); v != "" {
		cfg.Infra.OrderAPI.BaseURL = v
	}
	if v := os.Getenv("ADMIN_API_BASE_URL"); v != "" {
		cfg.Infra.AdminAPI.BaseURL = v
	}
}

// getEnv 从环境变量读取配置，缺省时用 fallback。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
