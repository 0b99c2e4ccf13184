package middleware

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	// Schlüssel im gin-Kontext
	LanguageKey   = "language"
	TranslatorKey = "translator"

	sessionLanguageKey = "language"
)

// Unterstützte Sprachen, die erste ist der Standard
var supported = []language.Tag{language.Spanish, language.English}

// I18nConfig definiert die Konfiguration für die i18n-Middleware
type I18nConfig struct {
	DefaultLanguage string
}

// Translator hält die geladenen Übersetzungen
type Translator struct {
	bundle          *i18n.Bundle
	localizer       map[string]*i18n.Localizer
	translations    map[string]map[string]string
	defaultLanguage string
	matcher         language.Matcher
}

// NewTranslator lädt die eingebetteten Übersetzungsdateien
func NewTranslator(config I18nConfig) (*Translator, error) {
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "es"
	}
	defaultTag, err := language.Parse(config.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", config.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{
		bundle:          bundle,
		localizer:       make(map[string]*i18n.Localizer),
		translations:    make(map[string]map[string]string),
		defaultLanguage: config.DefaultLanguage,
		matcher:         language.NewMatcher(supported),
	}

	files, err := fs.Glob(localeFS, "locales/*.json")
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		langCode := strings.TrimSuffix(path.Base(file), ".json")

		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		t.localizer[langCode] = i18n.NewLocalizer(bundle, langCode)

		data, err := localeFS.ReadFile(file)
		if err != nil {
			return nil, err
		}
		var nested map[string]interface{}
		if err := json.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		t.translations[langCode] = flattenMap(nested, "")
	}

	if _, ok := t.localizer[t.defaultLanguage]; !ok {
		return nil, fmt.Errorf("no translations for default language %q", t.defaultLanguage)
	}
	return t, nil
}

// Supported meldet, ob für lang Übersetzungen vorliegen
func (t *Translator) Supported(lang string) bool {
	_, ok := t.localizer[lang]
	return ok
}

// T übersetzt key in lang. Unbekannte Sprachen fallen auf die Standardsprache
// zurück, unbekannte Schlüssel auf den Schlüssel selbst.
func (t *Translator) T(lang, key string, data map[string]interface{}) string {
	if !t.Supported(lang) {
		lang = t.defaultLanguage
	}
	msg, err := t.localizer[lang].Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err == nil {
		return msg
	}

	// Fallback über die flache Map, z.B. für Schlüssel, die go-i18n anders verschachtelt
	raw, ok := t.translations[lang][key]
	if !ok {
		raw, ok = t.translations[t.defaultLanguage][key]
	}
	if !ok {
		log.Debugf("No translation found for key '%s'", key)
		return key
	}
	if data == nil {
		return raw
	}
	tmpl, err := template.New(key).Parse(raw)
	if err != nil {
		return raw
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return raw
	}
	return buf.String()
}

// Match wählt die beste unterstützte Sprache für einen Accept-Language-Header
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLanguage
	}
	tag, _, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return t.defaultLanguage
	}
	base, _ := tag.Base()
	if !t.Supported(base.String()) {
		return t.defaultLanguage
	}
	return base.String()
}

// I18n erstellt die Middleware. Reihenfolge: ?lang= (wird in der Session
// gespeichert), Session, Accept-Language, Standardsprache.
// Erwartet, dass sessions.Sessions vorher registriert ist.
func I18n(translator *Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		lang := c.Query("lang")

		if lang != "" && translator.Supported(lang) {
			session.Set(sessionLanguageKey, lang)
			if err := session.Save(); err != nil {
				log.Warnf("Failed to save language in session: %v", err)
			}
		} else {
			lang = ""
			if v, ok := session.Get(sessionLanguageKey).(string); ok && translator.Supported(v) {
				lang = v
			}
		}

		if lang == "" {
			lang = translator.Match(c.GetHeader("Accept-Language"))
		}

		c.Set(LanguageKey, lang)
		c.Set(TranslatorKey, translator)
		c.Next()
	}
}

// T übersetzt key in der Sprache der aktuellen Anfrage
func T(c *gin.Context, key string, data map[string]interface{}) string {
	v, ok := c.Get(TranslatorKey)
	if !ok {
		return key
	}
	translator, ok := v.(*Translator)
	if !ok {
		return key
	}
	return translator.T(c.GetString(LanguageKey), key, data)
}

// flattenMap macht aus {"error": {"x": "..."}} den Schlüssel "error.x"
func flattenMap(input map[string]interface{}, prefix string) map[string]string {
	result := make(map[string]string)

	for k, v := range input {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch child := v.(type) {
		case map[string]interface{}:
			for childKey, childValue := range flattenMap(child, key) {
				result[childKey] = childValue
			}
		case string:
			result[key] = child
		default:
			result[key] = fmt.Sprint(child)
		}
	}

	return result
}
