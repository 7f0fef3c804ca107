package pipeline

import (
	"path/filepath"

	"entrysummary/internal/audit"
	"entrysummary/internal/config"
	"entrysummary/internal/extraction"
	"entrysummary/internal/parser"
)

// FromConfig 按应用配置组装流水线选项与抽取客户端；dataDir 为已创建的数据目录
func FromConfig(cfg *config.AppConfig, dataDir string) (Options, *extraction.Client, error) {
	extractionCfg, err := extraction.ConfigFrom(cfg.Extraction, filepath.Join(dataDir, config.DirRaw))
	if err != nil {
		return Options{}, nil, err
	}
	auditOpts, err := audit.OptionsWithBounds(cfg.Processing.MPFMinimum, cfg.Processing.MPFMaximum)
	if err != nil {
		return Options{}, nil, err
	}

	expander := parser.NewExpander(parser.WithItemFilter(parser.NoiseFilter(cfg.Processing.KeepNumericLines)))
	auditOpts.Schema = expander.Schema()

	opts := Options{
		Expander:      expander,
		Audit:         auditOpts,
		SheetName:     cfg.Excel.SheetName,
		ExportDir:     filepath.Join(dataDir, config.DirExports),
		MaxConcurrent: cfg.Processing.MaxConcurrent,
	}
	if cfg.Data.KeepRawJSON {
		opts.RawDir = filepath.Join(dataDir, config.DirRaw)
	}
	return opts, extraction.NewClient(extractionCfg), nil
}
