// Package mapping turns a source record tree into a target payload.
//
// # Overview
//
// A Registry is an ordered list of Fields. Each Field names a target key, the
// source paths to try and an optional Transform. The Engine walks the
// registry in order for one record:
//
//  1. Try every path left to right. A path that does not resolve is skipped.
//  2. Hand the resolved value to the Transform, if any. Returning ErrNextPath
//     moves on to the next path, any other error fails the record.
//  3. A nil result is written as an explicit null unless OmitIfNull is set.
//  4. When no path produced a value the Default is written, or nothing.
//
// Translatable fields run once per configured language and are collected
// under payload["translations"][languageID]. Other fields run once with the
// default language.
//
// Fields talk to each other through the scratch.Context passed into every
// Transform, which is why the registry order matters: a field reading a value
// must come after the field writing it.
package mapping

import (
	"errors"

	"github.com/Kentzo-Omakse/hexim/pkg/scratch"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
)

type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDatetime Kind = "datetime"
	KindArray    Kind = "array"
)

// TranslationsKey is the payload key holding language-scoped values.
const TranslationsKey = "translations"

// ErrNextPath is returned by a Transform to retry with the field's next path.
var ErrNextPath = errors.New("try next path")

type Language struct {
	ID   string
	Code string
}

type TransformInput struct {
	Value    value.Value
	Path     string
	Language Language
	Scratch  *scratch.Context
}

// Transform maps a resolved source value to a target value. A nil result is a
// null, not a request to skip.
type Transform func(in TransformInput) (any, error)

// Field is immutable once it has been added to a Registry.
type Field struct {
	Name         string
	Kind         Kind
	Paths        []string
	Transform    Transform
	Translatable bool
	// Default is written when no path resolves. nil means no default.
	Default    any
	OmitIfNull bool
}

func NewField(name string, kind Kind, paths ...string) Field {
	return Field{Name: name, Kind: kind, Paths: paths}
}

func (f Field) WithTransform(fn Transform) Field {
	f.Transform = fn
	return f
}

func (f Field) Translated() Field {
	f.Translatable = true
	return f
}

func (f Field) WithDefault(def any) Field {
	f.Default = def
	return f
}

func (f Field) OmittingNull() Field {
	f.OmitIfNull = true
	return f
}

func (f Field) clone() Field {
	paths := make([]string, len(f.Paths))
	copy(paths, f.Paths)
	f.Paths = paths
	return f
}
