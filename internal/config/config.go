package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Extraction ExtractionConfig `toml:"extraction"`
	Processing ProcessingConfig `toml:"processing"`
	Excel      ExcelConfig      `toml:"excel"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port          int  `toml:"port" validate:"gte=0,lte=65535"`
	DevMode       bool `toml:"dev_mode"`
	MaxUploadMB   int  `toml:"max_upload_mb" validate:"gt=0"`
	EnableMetrics bool `toml:"enable_metrics"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir     string `toml:"data_dir" validate:"required"`
	KeepRawJSON bool   `toml:"keep_raw_json"`
}

// ExtractionConfig A79 抽取服务配置
type ExtractionConfig struct {
	BaseURL          string   `toml:"base_url" validate:"required,url"`
	APIKey           string   `toml:"api_key"`
	AgentName        string   `toml:"agent_name" validate:"required"`
	WorkflowID       string   `toml:"workflow_id"`
	OutputVar        string   `toml:"output_var"`
	InstructionsFile string   `toml:"instructions_file"`
	RequestTimeout   Duration `toml:"request_timeout"`
	PollInterval     Duration `toml:"poll_interval"`
	MaxPollAttempts  int      `toml:"max_poll_attempts" validate:"gt=0"`
}

// ProcessingConfig 处理配置
type ProcessingConfig struct {
	MaxConcurrent    int    `toml:"max_concurrent" validate:"gt=0,lte=64"`
	KeepNumericLines bool   `toml:"keep_numeric_lines"`
	MPFMinimum       string `toml:"mpf_minimum" validate:"omitempty,numeric"`
	MPFMaximum       string `toml:"mpf_maximum" validate:"omitempty,numeric"`
}

// ExcelConfig Excel 导出相关配置
type ExcelConfig struct {
	SheetName   string   `toml:"sheet_name" validate:"required,max=31"`
	DownloadTTL Duration `toml:"download_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `toml:"json"`
}

// Duration toml 中以 "5s" / "10m" 形式书写的时长
type Duration struct {
	time.Duration
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText 实现 encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	ConfigPath    string // 实际读取的配置文件，未找到为空
	EnvFile       string // 实际加载的 .env，未找到为空
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:          20262,
			DevMode:       false,
			MaxUploadMB:   50,
			EnableMetrics: true,
		},
		Data: DataConfig{
			DataDir:     "data",
			KeepRawJSON: true,
		},
		Extraction: ExtractionConfig{
			BaseURL:         "https://klearnow.prod.a79.ai/api/v1/public/workflow",
			AgentName:       "Unified PDF Parser",
			OutputVar:       "final_display_output",
			RequestTimeout:  Duration{300 * time.Second},
			PollInterval:    Duration{5 * time.Second},
			MaxPollAttempts: 120,
		},
		Processing: ProcessingConfig{
			MaxConcurrent:    10,
			KeepNumericLines: true,
			MPFMinimum:       "32.71",
			MPFMaximum:       "634.62",
		},
		Excel: ExcelConfig{
			SheetName:   "Entry Summary",
			DownloadTTL: Duration{10 * time.Minute},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
// 查找顺序：可执行文件目录、当前目录；.env 同理（已存在的环境变量不会被覆盖）。
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadFrom([]string{exeDir, "."})
}

// LoadFrom 在给定目录中依次查找 config.toml 与 .env
func LoadFrom(dirs []string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{}
	config := DefaultConfig()

	for _, dir := range dirs {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return nil, info, fmt.Errorf("load %s: %w", envPath, err)
		}
		info.EnvFile = envPath
		break
	}

	for _, dir := range dirs {
		configPath := filepath.Join(dir, "config.toml")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, info, err
		}

		info.PortSpecified = isPortSpecifiedInToml(data)
		info.ConfigPath = configPath
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", configPath, err)
		}
		break
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖（密钥不写入配置文件）
func applyEnv(config *AppConfig) {
	if v := os.Getenv("A79_API_KEY"); v != "" {
		config.Extraction.APIKey = v
	}
	if v := os.Getenv("A79_WORKFLOW_ID"); v != "" {
		config.Extraction.WorkflowID = v
	}
	if v := os.Getenv("A79_BASE_URL"); v != "" {
		config.Extraction.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("ENTRYSUMMARY_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("ENTRYSUMMARY_LOG_LEVEL"); v != "" {
		config.Log.Level = strings.ToLower(v)
	}
}

// Validate 校验配置取值
func Validate(config *AppConfig) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if config.Extraction.PollInterval.Duration <= 0 || config.Extraction.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("invalid config: extraction timeouts must be positive")
	}
	return nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig 保存配置到 config.toml（api_key 不落盘）
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	clean := *config
	clean.Extraction.APIKey = ""
	data, err := toml.Marshal(&clean)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// 数据目录下的子目录
const (
	DirUploads = "uploads"
	DirExports = "exports"
	DirRaw     = "raw"
)

// EnsureDataDir 确保数据目录存在
// 相对路径的数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	for _, subdir := range []string{DirUploads, DirExports, DirRaw} {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(resolveDataDir(config), subdir, filename)
}

func resolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil || exeDir == "" {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}
