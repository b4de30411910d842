package extract

import (
	"photocat/internal/catalog"
	"photocat/internal/config"
)

// BuiltinCommand selects the in-process goexif extractor from --meta-cmd.
const BuiltinCommand = "builtin"

// NewExtractorFromConfig creates an Extractor based on the extractor config type.
func NewExtractorFromConfig(cfg config.ExtractorConfig) (catalog.Extractor, error) {
	switch cfg.Type {
	case "", "command":
		if cfg.Command == BuiltinCommand {
			return NewExifExtractor(cfg.Timeout.Duration), nil
		}
		return NewCommandExtractor(cfg.Command, cfg.Timeout.Duration, cfg.MaxProcs), nil
	case "goexif":
		return NewExifExtractor(cfg.Timeout.Duration), nil
	default:
		return nil, catalog.Configf("unknown extractor type: %s", cfg.Type)
	}
}
