package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, and parses the config file, applies environment overrides, and validates.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	envFile, err := EnvFilePath()
	if err != nil {
		envFile = ""
	}
	environ, err := loadEnvironment(envFile)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default(), Exists: true}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Exists = false
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, decodeErr := decodeJSONC(string(content), loaded.Config)
		if decodeErr != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, decodeErr)
		}
		loaded.Config = cfg
		loaded.Warnings = append(loaded.Warnings, warnings...)
	}

	envWarnings, err := applyEnv(&loaded.Config, environ)
	if err != nil {
		return Loaded{}, err
	}
	loaded.Warnings = append(loaded.Warnings, envWarnings...)

	validatedWarnings, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}
	loaded.Config.Speech.Language = canonicalLanguage(loaded.Config.Speech.Language)
	loaded.Warnings = append(loaded.Warnings, validatedWarnings...)
	return loaded, nil
}
