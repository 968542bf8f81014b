// Package i18n negotiates the request locale and renders localized messages.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"gamehub/backend/internal/apperr"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var catalogFS embed.FS

// Fallback is the locale used when a key is missing from the requested catalog.
const Fallback = "en"

// Bundle holds every catalog plus the translators used for validation errors.
type Bundle struct {
	defaultLocale string
	supported     []string
	messages      map[string]map[string]string
	matcher       language.Matcher
	uni           *ut.UniversalTranslator
}

var (
	localeTranslators = map[string]locales.Translator{
		"en": en.New(),
		"es": es.New(),
		"fr": fr.New(),
	}
	defaultTranslations = map[string]func(*validator.Validate, ut.Translator) error{
		"en": en_translations.RegisterDefaultTranslations,
		"es": es_translations.RegisterDefaultTranslations,
		"fr": fr_translations.RegisterDefaultTranslations,
	}
)

// New loads the embedded catalogs. defaultLocale must be one of them.
func New(defaultLocale string) (*Bundle, error) {
	b := &Bundle{
		defaultLocale: defaultLocale,
		messages:      make(map[string]map[string]string),
	}

	entries, err := catalogFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		locale := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		raw, err := catalogFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, err
		}
		catalog := make(map[string]string)
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", entry.Name(), err)
		}
		b.messages[locale] = catalog
	}

	if _, ok := b.messages[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog", defaultLocale)
	}

	// The matcher falls back to the first tag, so the default goes first.
	b.supported = []string{defaultLocale}
	for _, l := range []string{"en", "es", "fr"} {
		if _, ok := b.messages[l]; ok && l != defaultLocale {
			b.supported = append(b.supported, l)
		}
	}
	tags := make([]language.Tag, 0, len(b.supported))
	for _, l := range b.supported {
		tags = append(tags, language.Make(l))
	}
	b.matcher = language.NewMatcher(tags)

	supportedTranslators := make([]locales.Translator, 0, len(b.supported))
	for _, l := range b.supported {
		supportedTranslators = append(supportedTranslators, localeTranslators[l])
	}
	b.uni = ut.New(localeTranslators[defaultLocale], supportedTranslators...)

	return b, nil
}

func (b *Bundle) Default() string { return b.defaultLocale }

func (b *Bundle) Locales() []string {
	return append([]string(nil), b.supported...)
}

// Supported reports whether locale has a catalog.
func (b *Bundle) Supported(locale string) bool {
	_, ok := b.messages[locale]
	return ok
}

// Negotiate picks a supported locale. An explicit override wins over the Accept-Language header.
func (b *Bundle) Negotiate(override, acceptLanguage string) string {
	if override != "" {
		if tag, err := language.Parse(override); err == nil {
			if base, _ := tag.Base(); b.Supported(base.String()) {
				return base.String()
			}
		}
	}
	if acceptLanguage == "" {
		return b.defaultLocale
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return b.defaultLocale
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.defaultLocale
	}
	return b.supported[idx]
}

// T renders key in locale. Missing keys fall back to English, then to the key itself.
func (b *Bundle) T(locale, key string, params map[string]string) string {
	msg, ok := b.messages[locale][key]
	if !ok {
		if msg, ok = b.messages[Fallback][key]; !ok {
			return key
		}
	}
	if len(params) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// RegisterValidator installs built-in and custom-rule translations on v for every locale.
func (b *Bundle) RegisterValidator(v *validator.Validate, customTags []string) error {
	for _, locale := range b.supported {
		trans, _ := b.uni.GetTranslator(locale)
		if err := defaultTranslations[locale](v, trans); err != nil {
			return fmt.Errorf("register %s translations: %w", locale, err)
		}
		for _, tag := range customTags {
			text := b.T(locale, "validation."+tag, nil)
			err := v.RegisterTranslation(tag, trans,
				func(t ut.Translator) error { return t.Add(tag, text, true) },
				func(t ut.Translator, fe validator.FieldError) string {
					msg, err := t.T(fe.Tag(), fe.Field())
					if err != nil {
						return fe.Error()
					}
					return msg
				},
			)
			if err != nil {
				return fmt.Errorf("register %s translation for %s: %w", locale, tag, err)
			}
		}
	}
	return nil
}

// TranslateValidation renders each validation failure in locale.
func (b *Bundle) TranslateValidation(locale string, errs validator.ValidationErrors) []apperr.FieldError {
	trans, _ := b.uni.GetTranslator(locale)
	out := make([]apperr.FieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, apperr.FieldError{Field: fe.Field(), Message: fe.Translate(trans)})
	}
	return out
}
