// Package providers 收纳具体的上游推理服务实现及其配置。
package providers

import "time"

// OpenRouterConfig OpenRouter 接入配置。
// OpenRouter 暴露 OpenAI 兼容的 Chat Completions 接口，
// 额外要求 HTTP-Referer 与 X-Title 头用于调用方归因。
type OpenRouterConfig struct {
	APIKey   string        `yaml:"api_key" json:"api_key"`
	BaseURL  string        `yaml:"base_url" json:"base_url"`
	Model    string        `yaml:"model" json:"model"`
	Referer  string        `yaml:"referer" json:"referer"`
	AppTitle string        `yaml:"app_title" json:"app_title"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// ChooseModel 按 请求 > 配置 > 内置默认 的顺序决定模型名。
func ChooseModel(requested, configured, fallback string) string {
	if requested != "" {
		return requested
	}
	if configured != "" {
		return configured
	}
	return fallback
}
