package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"code-intel/internal/types"
)

// ErrInvalidConfig 설정 검증 실패
var ErrInvalidConfig = errors.New("invalid config")

// 내장 규칙 ID
const (
	RuleLongFunction      = "long-function"
	RuleMissingDocstring  = "missing-docstring"
	RuleHighComplexity    = "high-complexity"
	RuleMissingReturnType = "missing-return-type"
	RuleTooManyParameters = "too-many-parameters"
)

// KnownRules 설정에서 참조 가능한 규칙 ID 목록
var KnownRules = []string{
	RuleLongFunction,
	RuleMissingDocstring,
	RuleHighComplexity,
	RuleMissingReturnType,
	RuleTooManyParameters,
}

// KnownDetectors 내장 패턴 탐지기 이름 목록
var KnownDetectors = []string{
	"Singleton", "Factory", "Observer", "Strategy", "Decorator",
	"God Class", "Spaghetti Code", "Long Parameter List",
	"Duplicate Code", "Magic Numbers", "Feature Envy", "Data Clump",
}

// KnownSecurityPasses 보안 스캐너 패스 이름
var KnownSecurityPasses = []string{"patterns", "tree", "sensitive", "imports"}

// Config 전체 설정
type Config struct {
	Version    string          `yaml:"version"`
	Analyzer   AnalyzerConfig  `yaml:"analyzer"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Rules      []RuleConfig    `yaml:"rules" validate:"dive"`
	Patterns   PatternConfig   `yaml:"patterns"`
	Security   SecurityConfig  `yaml:"security"`
	Server     ServerConfig    `yaml:"server"`
	MCP        MCPConfig       `yaml:"mcp"`
}

// AnalyzerConfig 오케스트레이터 설정
type AnalyzerConfig struct {
	Workers     int      `yaml:"workers" validate:"gte=0,lte=256"`
	Recursive   bool     `yaml:"recursive"`
	Patterns    []string `yaml:"patterns"`
	MaxFileSize int64    `yaml:"max_file_size" validate:"gte=0"`
}

// MetricsConfig 지표 계산 상수
type MetricsConfig struct {
	DuplicateMinLineLength int     `yaml:"duplicate_min_line_length" validate:"gte=0"`
	HalsteadVolumePerLine  float64 `yaml:"halstead_volume_per_line" validate:"gt=0"`
}

// ThresholdConfig 이슈 규칙 임계값
type ThresholdConfig struct {
	LongFunctionLines int `yaml:"long_function_lines" validate:"gte=1"`
	HighComplexity    int `yaml:"high_complexity" validate:"gte=1"`
	TooManyParameters int `yaml:"too_many_parameters" validate:"gte=1"`
}

// RuleConfig 개별 규칙 설정
type RuleConfig struct {
	ID       string `yaml:"id" validate:"required"`
	Enabled  *bool  `yaml:"enabled"`
	Severity string `yaml:"severity,omitempty" validate:"omitempty,oneof=info warning error critical"`
}

// IsEnabled enabled 미지정 시 활성화로 간주
func (r RuleConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// PatternConfig 패턴 탐지 임계값
type PatternConfig struct {
	Disabled               []string  `yaml:"disabled"`
	GodClassMethods        int       `yaml:"god_class_methods" validate:"gte=1"`
	GodClassAttributes     int       `yaml:"god_class_attributes" validate:"gte=1"`
	GodClassLines          int       `yaml:"god_class_lines" validate:"gte=1"`
	SpaghettiComplexity    int       `yaml:"spaghetti_complexity" validate:"gte=1"`
	SpaghettiNesting       int       `yaml:"spaghetti_nesting" validate:"gte=1"`
	LongParameterList      int       `yaml:"long_parameter_list" validate:"gte=1"`
	DuplicateSimilarity    float64   `yaml:"duplicate_similarity" validate:"gt=0,lte=1"`
	FeatureEnvyRatio       float64   `yaml:"feature_envy_ratio" validate:"gt=0"`
	FeatureEnvyMinAccesses int       `yaml:"feature_envy_min_accesses" validate:"gte=0"`
	DataClumpMinParams     int       `yaml:"data_clump_min_params" validate:"gte=2"`
	DataClumpMinFunctions  int       `yaml:"data_clump_min_functions" validate:"gte=2"`
	MagicNumberAllowed     []float64 `yaml:"magic_number_allowed"`
	IndentWidth            int       `yaml:"indent_width" validate:"gte=1"`
}

// SecurityConfig 보안 스캐너 설정
type SecurityConfig struct {
	Weights        SeverityWeights `yaml:"weights"`
	ContextWindow  int             `yaml:"context_window" validate:"gte=0"`
	DisabledPasses []string        `yaml:"disabled_passes"`
	Patterns       []string        `yaml:"patterns"`
}

// SeverityWeights 보안 점수 가중치
type SeverityWeights struct {
	Critical int `yaml:"critical" validate:"gte=0"`
	High     int `yaml:"high" validate:"gte=0"`
	Medium   int `yaml:"medium" validate:"gte=0"`
	Low      int `yaml:"low" validate:"gte=0"`
}

// ServerConfig HTTP API 설정
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MCPConfig MCP 서버 설정
type MCPConfig struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"base_url"`
}

// Default 내장 기본 설정
func Default() *Config {
	return &Config{
		Version: "1",
		Analyzer: AnalyzerConfig{
			Recursive: true,
			Patterns: []string{
				"*.py", "*.js", "*.jsx", "*.ts", "*.tsx",
				"*.java", "*.cpp", "*.cc", "*.go", "*.rs", "*.rb",
			},
			MaxFileSize: 10 * 1024 * 1024,
		},
		Metrics: MetricsConfig{
			DuplicateMinLineLength: 10,
			HalsteadVolumePerLine:  10,
		},
		Thresholds: ThresholdConfig{
			LongFunctionLines: 50,
			HighComplexity:    10,
			TooManyParameters: 5,
		},
		Patterns: PatternConfig{
			GodClassMethods:        20,
			GodClassAttributes:     15,
			GodClassLines:          500,
			SpaghettiComplexity:    15,
			SpaghettiNesting:       4,
			LongParameterList:      5,
			DuplicateSimilarity:    0.8,
			FeatureEnvyRatio:       1.5,
			FeatureEnvyMinAccesses: 0,
			DataClumpMinParams:     3,
			DataClumpMinFunctions:  2,
			MagicNumberAllowed:     []float64{0, 1, -1, 2, 10, 100},
			IndentWidth:            4,
		},
		Security: SecurityConfig{
			Weights:       SeverityWeights{Critical: 25, High: 15, Medium: 5, Low: 1},
			ContextWindow: 50,
			Patterns:      []string{"*.py", "*.js", "*.ts", "*.java", "*.rb", "*.php"},
		},
		Server: ServerConfig{Addr: ":8080"},
		MCP:    MCPConfig{Addr: ":8081", BaseURL: "http://localhost:8081"},
	}
}

// LoadConfig 설정 파일 로드. 파일 값은 기본값 위에 덮어쓴다.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("설정 파일 읽기 실패: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault 파일이 없으면 기본 설정을 반환
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadConfig(configPath)
}

// Parse YAML 바이트를 설정으로 변환하고 검증
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("설정 파일 파싱 실패: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 구조체 태그와 이름 참조 검증
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, rule := range c.Rules {
		if !containsFold(KnownRules, rule.ID) {
			return fmt.Errorf("%w: 알 수 없는 규칙 %q%s", ErrInvalidConfig, rule.ID, didYouMean(KnownRules, rule.ID))
		}
	}
	for _, name := range c.Patterns.Disabled {
		if !containsFold(KnownDetectors, name) {
			return fmt.Errorf("%w: 알 수 없는 탐지기 %q%s", ErrInvalidConfig, name, didYouMean(KnownDetectors, name))
		}
	}
	for _, pass := range c.Security.DisabledPasses {
		if !containsFold(KnownSecurityPasses, pass) {
			return fmt.Errorf("%w: 알 수 없는 보안 패스 %q%s", ErrInvalidConfig, pass, didYouMean(KnownSecurityPasses, pass))
		}
	}
	return nil
}

// RuleEnabled 규칙 활성화 여부. 설정에 없으면 활성화.
func (c *Config) RuleEnabled(id string) bool {
	for _, rule := range c.Rules {
		if strings.EqualFold(rule.ID, id) {
			return rule.IsEnabled()
		}
	}
	return true
}

// EnabledRules 활성화된 내장 규칙 ID 목록
func (c *Config) EnabledRules() []string {
	var ids []string
	for _, id := range KnownRules {
		if c.RuleEnabled(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DisabledRules 설정에서 비활성화된 규칙 ID 목록
func (c *Config) DisabledRules() []string {
	var ids []string
	for _, rule := range c.Rules {
		if !rule.IsEnabled() {
			ids = append(ids, rule.ID)
		}
	}
	return ids
}

// RuleSeverity 규칙 심각도 재정의. 없으면 fallback.
func (c *Config) RuleSeverity(id string, fallback types.Severity) types.Severity {
	for _, rule := range c.Rules {
		if strings.EqualFold(rule.ID, id) && rule.Severity != "" {
			if sev, err := types.ParseSeverity(rule.Severity); err == nil {
				return sev
			}
		}
	}
	return fallback
}

// DetectorEnabled 패턴 탐지기 활성화 여부
func (p PatternConfig) DetectorEnabled(name string) bool {
	return !containsFold(p.Disabled, name)
}

// PassEnabled 보안 패스 활성화 여부
func (s SecurityConfig) PassEnabled(pass string) bool {
	return !containsFold(s.DisabledPasses, pass)
}

// ParseSeverity 문자열을 Severity로 변환. 알 수 없는 값은 info.
func ParseSeverity(s string) types.Severity {
	sev, err := types.ParseSeverity(s)
	if err != nil {
		return types.SeverityInfo
	}
	return sev
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
