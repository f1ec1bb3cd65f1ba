package intl

import (
	"context"
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

type localizerKey struct{}
type localeKey struct{}

// NewBundle builds the message bundle from the embedded locale files.
func NewBundle() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, lang := range SupportedLanguages {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.toml", lang.Code)); err != nil {
			return nil, fmt.Errorf("failed to load locale %s: %w", lang.Code, err)
		}
	}
	return bundle, nil
}

func WithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, localizer)
}

func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	localizer, ok := ctx.Value(localizerKey{}).(*i18n.Localizer)
	return localizer, ok
}

func WithLocale(ctx context.Context, locale language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

func UseLocale(ctx context.Context, fallback language.Tag) language.Tag {
	locale, ok := ctx.Value(localeKey{}).(language.Tag)
	if !ok {
		return fallback
	}
	return locale
}

// MustT resolves a message by id, falling back to the id itself when the
// context carries no localizer or the bundle misses the key.
func MustT(ctx context.Context, messageID string, data map[string]string) string {
	localizer, ok := UseLocalizer(ctx)
	if !ok {
		return messageID
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
