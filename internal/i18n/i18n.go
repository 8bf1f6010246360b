// Package i18n translates the user interface. Vietnamese is the primary
// language; English is kept for staff.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// locale is what a request renders with.
type locale struct {
	tag language.Tag
	loc *i18n.Localizer
}

var (
	bundle     *i18n.Bundle
	defaultTag = language.Vietnamese
	supported  []language.Tag
	matcher    language.Matcher
)

// Init loads the translation bundle with lang as the default language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	// The default goes first so the matcher falls back to it.
	tags := []language.Tag{tag}
	for _, t := range b.LanguageTags() {
		if t != tag {
			tags = append(tags, t)
		}
	}

	bundle = b
	defaultTag = tag
	supported = tags
	matcher = language.NewMatcher(tags)
	return nil
}

// Languages lists the loaded languages, default first.
func Languages() []string {
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		out = append(out, t.String())
	}
	return out
}

// Match picks the supported language for a list of preferences, each a tag
// or an Accept-Language value. The first preference that matches wins.
func Match(prefs ...string) language.Tag {
	if matcher == nil {
		return defaultTag
	}
	for _, p := range prefs {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			return supported[idx]
		}
	}
	return defaultTag
}

// WithLanguage stores the locale for lang in the context.
func WithLanguage(ctx context.Context, lang string) context.Context {
	tag := Match(lang)
	return context.WithValue(ctx, ctxKey{}, &locale{tag: tag, loc: i18n.NewLocalizer(bundle, tag.String())})
}

// Language returns the language a context renders in.
func Language(ctx context.Context) language.Tag {
	return fromCtx(ctx).tag
}

func fromCtx(ctx context.Context) *locale {
	if l, ok := ctx.Value(ctxKey{}).(*locale); ok {
		return l
	}
	return &locale{tag: defaultTag, loc: i18n.NewLocalizer(bundle, defaultTag.String())}
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	s, err := fromCtx(ctx).loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message by ID. The count is available to the
// template as .Count.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// FormatNumber prints a score or measurement with the language's decimal
// separator and at most two fraction digits.
func FormatNumber(ctx context.Context, f float64) string {
	p := message.NewPrinter(Language(ctx))
	return p.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}

// FormatDate prints a calendar date in the language's usual order.
func FormatDate(ctx context.Context, t time.Time) string {
	return t.Format(T(ctx, "DateFormat"))
}
