package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	msg := T("invalid_type", nil)
	assert.Equal(t, "invalid type", msg)

	SetLanguage("ja")
	defer SetLanguage("en")
	assert.NotEqual(t, "invalid type", T("invalid_type", nil))
}

func TestTranslator_Placeholders(t *testing.T) {
	assert.Equal(t, "unknown discriminator circle", T("discriminator_unknown", map[string]string{"kind": "circle"}))
	assert.Equal(t, "unknown discriminator", T("discriminator_unknown", nil))
}

func TestTranslator_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "no_such_code", T("no_such_code", nil))

	SetLanguage("fr")
	defer SetLanguage("en")
	assert.Equal(t, "parse error", T("parse_error", nil))
}

func TestTranslator_DuplicateKey(t *testing.T) {
	assert.Equal(t, "duplicate key", T("duplicate_key", nil))

	SetLanguage("ja")
	defer SetLanguage("en")
	assert.Equal(t, "キーが重複しています", T("duplicate_key", nil))
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	defer SetTranslator(nil)
	assert.Equal(t, "X:required", T("required", nil))
}
