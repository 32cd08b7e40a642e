package indicator

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Japanese,
})

type messages struct {
	listening string
	errorText string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

// resolveLocale maps a POSIX locale such as "ja_JP.UTF-8" to a supported tag.
func resolveLocale(raw string) language.Tag {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexAny(raw, ".@"); idx >= 0 {
		raw = raw[:idx]
	}
	if raw == "" || raw == "C" || raw == "POSIX" {
		return language.English
	}

	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return language.English
	}
	_, index, confidence := localeMatcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return []language.Tag{language.English, language.Japanese}[index]
}

func indicatorMessages(tag language.Tag) messages {
	switch tag {
	case language.Japanese:
		return messages{
			listening: "聞き取り中…",
			errorText: "音声認識エラー",
		}
	default:
		return messages{
			listening: "Listening…",
			errorText: "Speech recognition error",
		}
	}
}
