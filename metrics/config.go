package metrics

import "fmt"

// Config 指标系统的配置
//
// 典型配置示例（YAML）：
//
//	metrics:
//	  enabled: true
//	  service_name: "order-worker"
//	  version: "v1.2.3"
//	  port: 9090
//	  path: "/metrics"
//	  runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 写入 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 写入 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version"`

	// Port 大于 0 时启动内置 HTTP 服务器暴露 Prometheus 指标
	Port int `mapstructure:"port"`

	// Path Prometheus 抓取路径，默认 "/metrics"
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go runtime 指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置：启用采集，但不启动 HTTP 服务器
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

func (c *Config) setDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.ServiceName == "" {
		c.ServiceName = "keylock"
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Port)
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("metrics path must start with '/': %s", c.Path)
	}
	return nil
}
