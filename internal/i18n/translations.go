// Package i18n renders user-facing API messages in the caller's language.
package i18n

import (
	"embed"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

// Message identifiers shared by every locale file.
const (
	MsgSignupSuccess     = "signup_success"
	MsgUnregisterSuccess = "unregister_success"
	MsgActivityNotFound  = "activity_not_found"
	MsgAlreadySignedUp   = "already_signed_up"
	MsgNotSignedUp       = "not_signed_up"
	MsgEmailRequired     = "email_required"
	MsgInternalError     = "internal_error"
)

// Translator wraps a go-i18n bundle loaded from the embedded locale files.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
}

// NewTranslator builds a Translator whose fallback language is defaultLocale
// (English when defaultLocale cannot be parsed).
func NewTranslator(defaultLocale string) *Translator {
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.es.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Printf("i18n: failed to load %s: %v", file, err)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
	}
}

// T renders key for the given Accept-Language value. Unknown locales fall back
// to the default language, and unknown keys to the key itself.
func (t *Translator) T(acceptLanguage, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	localizer := i18n.NewLocalizer(t.bundle, acceptLanguage, t.defaultLanguage.String())
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		log.Printf("i18n: localize failed (key=%s, accept=%q): %v", key, acceptLanguage, err)
		return key
	}
	return msg
}

// English renders key in English whatever the default locale is.
func (t *Translator) English(key string, data map[string]any) string {
	return t.T(language.English.String(), key, data)
}
