package prompt

import "strings"

// Language is an ISO 639-1 code for the answer language.
type Language string

const English Language = "en"

type languageInfo struct {
	name   string
	native string
}

var languages = map[Language]languageInfo{
	"en": {"English", "English"},
	"es": {"Spanish", "Español"},
	"fr": {"French", "Français"},
	"de": {"German", "Deutsch"},
	"it": {"Italian", "Italiano"},
	"pt": {"Portuguese", "Português"},
	"hi": {"Hindi", "हिन्दी"},
	"zh": {"Chinese", "中文"},
	"ja": {"Japanese", "日本語"},
	"ar": {"Arabic", "العربية"},
}

var languageOrder = []Language{"en", "es", "fr", "de", "it", "pt", "hi", "zh", "ja", "ar"}

// AllLanguages lists the supported languages in menu order.
func AllLanguages() []Language {
	return append([]Language(nil), languageOrder...)
}

// ParseLanguage accepts a code ("fr") or an English or native name
// ("French", "Français"). Anything unrecognized is English.
func ParseLanguage(s string) Language {
	s = strings.TrimSpace(s)
	code := Language(strings.ToLower(s))
	if _, ok := languages[code]; ok {
		return code
	}
	for code, info := range languages {
		if strings.EqualFold(s, info.name) || strings.EqualFold(s, info.native) {
			return code
		}
	}
	return English
}

func (l Language) info() languageInfo {
	if info, ok := languages[l]; ok {
		return info
	}
	return languages[English]
}

// Name returns the English name of the language.
func (l Language) Name() string { return l.info().name }

// NativeName returns the language's name for itself.
func (l Language) NativeName() string { return l.info().native }

// Instruction tells the model which language to answer in.
func (l Language) Instruction() string {
	return "Respond in " + l.Name() + ", regardless of the language of the tool results"
}

func (l Language) String() string { return string(l) }
