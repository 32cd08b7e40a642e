package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLanguage validates a BCP 47 tag and returns its canonical spelling (en_us -> en-US).
func NormalizeLanguage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("language must not be empty")
	}

	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", raw, err)
	}
	if tag == language.Und {
		return "", fmt.Errorf("invalid language tag %q: undetermined", raw)
	}
	return tag.String(), nil
}

func canonicalLanguage(raw string) string {
	normalized, err := NormalizeLanguage(raw)
	if err != nil {
		return raw
	}
	return normalized
}
