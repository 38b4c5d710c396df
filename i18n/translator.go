// Package i18n renders issue codes as human messages.
package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key"); placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":          "invalid type",
		"invalid_value":         "invalid value",
		"required":              "required property missing",
		"unknown_key":           "unknown key",
		"length_mismatch":       "length mismatch",
		"hidden_value":          "value given for a hidden slot",
		"discriminator_unknown": "unknown discriminator {kind}",
		"union_no_match":        "no union member matched",
		"rejected":              "rejected by validator",
		"relation":              "relational constraint failed",
		"parse_error":           "parse error",
		"duplicate_key":         "duplicate key",
	},
	"ja": {
		"invalid_type":          "型が不正です",
		"invalid_value":         "値が不正です",
		"required":              "必須プロパティが不足しています",
		"unknown_key":           "未知のキーです",
		"length_mismatch":       "要素数が一致しません",
		"hidden_value":          "非表示のスロットに値があります",
		"discriminator_unknown": "未知の種別です {kind}",
		"union_no_match":        "いずれの候補にも一致しません",
		"rejected":              "検証で拒否されました",
		"relation":              "関係制約を満たしていません",
		"parse_error":           "解析エラー",
		"duplicate_key":         "キーが重複しています",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if strings.IndexByte(msg, '{') < 0 {
		return msg
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	// drop placeholders with no data, and the space before them
	for {
		i := strings.IndexByte(msg, '{')
		if i < 0 {
			break
		}
		j := strings.IndexByte(msg[i:], '}')
		if j < 0 {
			break
		}
		msg = strings.TrimRight(msg[:i], " ") + msg[i+j+1:]
	}
	return msg
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T returns the message for code.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
