package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural and cross-field
// problems. It assumes defaults have already been applied.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Cross-field checks the tag grammar cannot express.
	if cfg.Cache.PageSize > cfg.Cache.Size {
		return fmt.Errorf("cache.page_size (%s) exceeds cache.size (%s)",
			cfg.Cache.PageSize, cfg.Cache.Size)
	}
	if cfg.Cache.CapacityPages() < 1 {
		return fmt.Errorf("cache.size (%s) holds no complete pages of %s",
			cfg.Cache.Size, cfg.Cache.PageSize)
	}
	return nil
}

// formatValidationError rewrites validator errors into messages that
// name the config field rather than the Go struct path.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, fieldErr := range validationErrors {
		return fmt.Errorf("invalid value for %s: failed %q constraint",
			fieldErr.Namespace(), fieldErr.Tag())
	}
	return err
}
