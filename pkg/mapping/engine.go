package mapping

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"
	synerr "github.com/Kentzo-Omakse/hexim/pkg/errors"
	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

// Payload is the target entity body built for one record.
type Payload map[string]any

type Engine struct {
	defaultLanguage Language
	languages       []Language
	logger          ectologger.Logger
}

func NewEngine(logger ectologger.Logger, defaultLanguage Language, languages []Language) *Engine {
	if len(languages) == 0 {
		languages = []Language{defaultLanguage}
	}
	return &Engine{
		defaultLanguage: defaultLanguage,
		languages:       languages,
		logger:          logger,
	}
}

func (e *Engine) Languages() []Language {
	return e.languages
}

func (e *Engine) DefaultLanguage() Language {
	return e.defaultLanguage
}

// Map runs every field of the registry against tree. The first transform
// error aborts the record and is returned wrapped with the field name.
func (e *Engine) Map(ctx context.Context, registry *Registry, tree value.Value, sc *scratch.Context) (Payload, error) {
	payload := Payload{}

	for _, field := range registry.Fields() {
		if !field.Translatable {
			result, ok, err := e.evaluate(field, tree, e.defaultLanguage, sc)
			if err != nil {
				return nil, e.fieldError(ctx, field, err)
			}
			if ok {
				if err := value.Assign(payload, field.Name, result); err != nil {
					return nil, e.fieldError(ctx, field, err)
				}
			}
			continue
		}

		for _, lang := range e.languages {
			result, ok, err := e.evaluate(field, tree, lang, sc)
			if err != nil {
				return nil, e.fieldError(ctx, field, err)
			}
			if !ok {
				continue
			}
			if err := assignTranslation(payload, lang.ID, field.Name, result); err != nil {
				return nil, e.fieldError(ctx, field, err)
			}
		}
	}

	return payload, nil
}

// evaluate returns the field value for one language and whether it should be
// written at all.
func (e *Engine) evaluate(field Field, tree value.Value, lang Language, sc *scratch.Context) (any, bool, error) {
	for _, path := range field.Paths {
		resolved, err := value.Resolve(tree, path, value.WithLanguage(lang.Code))
		if err != nil {
			continue
		}

		var result any
		if field.Transform != nil {
			result, err = field.Transform(TransformInput{
				Value:    resolved,
				Path:     path,
				Language: lang,
				Scratch:  sc,
			})
			if errors.Is(err, ErrNextPath) {
				continue
			}
			if err != nil {
				return nil, false, err
			}
			if v, ok := result.(value.Value); ok {
				result = Coerce(v, field.Kind)
			}
		} else {
			result = Coerce(resolved, field.Kind)
		}

		if result == nil && field.OmitIfNull {
			return nil, false, nil
		}
		return result, true, nil
	}

	if field.Default != nil {
		return field.Default, true, nil
	}
	return nil, false, nil
}

func (e *Engine) fieldError(ctx context.Context, field Field, err error) error {
	e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"field": field.Name,
	}).Debug("failed to map field")

	return synerr.Wrap(synerr.KindRecordFailed, err).AddField(field.Name)
}

func assignTranslation(payload Payload, languageID, name string, result any) error {
	translations, ok := payload[TranslationsKey].(map[string]any)
	if !ok {
		translations = map[string]any{}
		payload[TranslationsKey] = translations
	}
	scoped, ok := translations[languageID].(map[string]any)
	if !ok {
		scoped = map[string]any{}
		translations[languageID] = scoped
	}
	return value.Assign(scoped, name, result)
}
