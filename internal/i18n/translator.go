// Package i18n produces localized bot messages from JSON catalogs.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Translator resolves message keys against per-locale catalogs, falling
// back to the default locale when a locale or key is missing.
type Translator struct {
	catalogs      map[string]map[string]string
	defaultLocale string
	logger        *zap.Logger

	mu       sync.Mutex
	reported map[string]bool
}

// NewTranslator loads every <locale>.json catalog from dir.
func NewTranslator(dir, defaultLocale string, logger *zap.Logger) (*Translator, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	catalogs := make(map[string]map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}

		var catalog map[string]string
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}

		locale := strings.TrimSuffix(e.Name(), ".json")
		catalogs[locale] = catalog
	}

	if _, ok := catalogs[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale catalog %q not found in %s", defaultLocale, dir)
	}

	logger.Info("locale catalogs loaded",
		zap.Int("locales", len(catalogs)),
		zap.String("default", defaultLocale),
	)

	return &Translator{
		catalogs:      catalogs,
		defaultLocale: defaultLocale,
		logger:        logger,
		reported:      make(map[string]bool),
	}, nil
}

// NewStaticTranslator builds a translator from in-memory catalogs. Used by
// tests and local runs without catalog files on disk.
func NewStaticTranslator(defaultLocale string, catalogs map[string]map[string]string, logger *zap.Logger) *Translator {
	if catalogs == nil {
		catalogs = map[string]map[string]string{defaultLocale: {}}
	}
	if _, ok := catalogs[defaultLocale]; !ok {
		catalogs[defaultLocale] = map[string]string{}
	}
	return &Translator{
		catalogs:      catalogs,
		defaultLocale: defaultLocale,
		logger:        logger,
		reported:      make(map[string]bool),
	}
}

// DefaultLocale returns the fallback locale the translator was built with.
func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// Translate returns the localized text for key. A missing key returns the
// key itself and logs once per key.
func (t *Translator) Translate(locale, key string) string {
	if catalog, ok := t.catalogs[locale]; ok {
		if text, ok := catalog[key]; ok {
			return text
		}
	}

	if text, ok := t.catalogs[t.defaultLocale][key]; ok {
		return text
	}

	t.mu.Lock()
	if !t.reported[key] {
		t.reported[key] = true
		t.logger.Warn("missing translation key",
			zap.String("key", key),
			zap.String("locale", locale),
		)
	}
	t.mu.Unlock()

	return key
}

// Translatef returns the localized text for key with {name} placeholders
// substituted from subs.
func (t *Translator) Translatef(locale, key string, subs map[string]string) string {
	text := t.Translate(locale, key)
	for name, value := range subs {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}
