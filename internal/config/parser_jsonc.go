package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Speech    *jsoncSpeech    `json:"speech"`
	Helper    *jsoncHelper    `json:"helper"`
	Hotkey    *jsoncHotkey    `json:"hotkey"`
	Paste     *jsoncPaste     `json:"paste"`
	Insertion *jsoncInsertion `json:"insertion"`
	Indicator *jsoncIndicator `json:"indicator"`
	Events    *jsoncEvents    `json:"events"`

	PasteCmd *string `json:"paste_cmd"`
}

type jsoncSpeech struct {
	Language *string `json:"language"`
	OnDevice *bool   `json:"on_device"`
}

type jsoncHelper struct {
	Path         *string `json:"path"`
	Args         *string `json:"args"`
	FinalGraceMS *int    `json:"final_grace_ms"`
}

type jsoncHotkey struct {
	Enable          *bool   `json:"enable"`
	Key             *string `json:"key"`
	Shortcut        *string `json:"shortcut"`
	RetryIntervalMS *int    `json:"retry_interval_ms"`
}

type jsoncPaste struct {
	Enable    *bool   `json:"enable"`
	Shortcut  *string `json:"shortcut"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncInsertion struct {
	Padding        *string `json:"padding"`
	RestoreDelayMS *int    `json:"restore_delay_ms"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	SoundStartFile *string `json:"sound_start_file"`
	SoundStopFile  *string `json:"sound_stop_file"`
	SoundErrorFile *string `json:"sound_error_file"`
	TextListening  *string `json:"text_listening"`
	TextError      *string `json:"text_error"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncEvents struct {
	Enable *bool `json:"enable"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := decodeJSONC(content, base)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

// decodeJSONC applies a JSONC document onto base without validating the result.
func decodeJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if s := payload.Speech; s != nil {
		if s.Language != nil {
			cfg.Speech.Language = strings.TrimSpace(*s.Language)
		}
		if s.OnDevice != nil {
			cfg.Speech.OnDeviceOnly = *s.OnDevice
		}
	}

	if h := payload.Helper; h != nil {
		if h.Path != nil {
			cfg.Helper.Path = strings.TrimSpace(*h.Path)
		}
		if h.Args != nil {
			raw := *h.Args
			argv, err := parseArgv(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid helper.args: %w", err)
			}
			cfg.Helper.Args = CommandConfig{Raw: raw, Argv: argv}
		}
		if h.FinalGraceMS != nil {
			cfg.Helper.FinalGraceMS = *h.FinalGraceMS
		}
	}

	if h := payload.Hotkey; h != nil {
		if h.Enable != nil {
			cfg.Hotkey.Enable = *h.Enable
		}
		if h.Key != nil {
			cfg.Hotkey.Key = strings.ToLower(strings.TrimSpace(*h.Key))
		}
		if h.Shortcut != nil {
			cfg.Hotkey.Shortcut = strings.ToLower(strings.TrimSpace(*h.Shortcut))
			if cfg.Hotkey.Shortcut == "" {
				warnings = append(warnings, Warning{Message: "hotkey.shortcut is empty; the fallback chord is disabled"})
			}
		}
		if h.RetryIntervalMS != nil {
			cfg.Hotkey.RetryIntervalMS = *h.RetryIntervalMS
		}
	}

	if p := payload.Paste; p != nil {
		if p.Enable != nil {
			cfg.Paste.Enable = *p.Enable
		}
		if p.Shortcut != nil {
			cfg.Paste.Shortcut = strings.TrimSpace(*p.Shortcut)
		}
		if p.TimeoutMS != nil {
			cfg.Paste.TimeoutMS = *p.TimeoutMS
		}
	}

	if payload.PasteCmd != nil {
		raw := *payload.PasteCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if in := payload.Insertion; in != nil {
		if in.Padding != nil {
			cfg.Insertion.Padding = *in.Padding
		}
		if in.RestoreDelayMS != nil {
			cfg.Insertion.RestoreDelayMS = *in.RestoreDelayMS
		}
	}

	if ind := payload.Indicator; ind != nil {
		if ind.Enable != nil {
			cfg.Indicator.Enable = *ind.Enable
		}
		if ind.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*ind.Backend)
		}
		if ind.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*ind.DesktopAppName)
		}
		if ind.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *ind.SoundEnable
		}
		if ind.SoundStartFile != nil {
			cfg.Indicator.SoundStartFile = strings.TrimSpace(*ind.SoundStartFile)
		}
		if ind.SoundStopFile != nil {
			cfg.Indicator.SoundStopFile = strings.TrimSpace(*ind.SoundStopFile)
		}
		if ind.SoundErrorFile != nil {
			cfg.Indicator.SoundErrorFile = strings.TrimSpace(*ind.SoundErrorFile)
		}
		if ind.TextListening != nil {
			cfg.Indicator.TextListening = *ind.TextListening
		}
		if ind.TextError != nil {
			cfg.Indicator.TextError = *ind.TextError
		}
		if ind.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *ind.ErrorTimeoutMS
		}
	}

	if payload.Events != nil && payload.Events.Enable != nil {
		cfg.Events.Enable = *payload.Events.Enable
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
