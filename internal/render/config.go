// Package render implements the render job pipeline: extracting a
// compositionConfig record from user TSX source, synthesizing a temporary
// host project around it, and orchestrating the external bundle/render steps.
package render

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"clipforge/internal/pkg/errors"
)

// ConfigExportName is the reserved export the extractor looks for. The export
// is never eligible as the renderable component (see export.go).
const ConfigExportName = "compositionConfig"

// Defaults applied to any field the source does not set to a usable value.
const (
	DefaultDurationInSeconds = 5.0
	DefaultFPS               = 30
	DefaultWidth             = 1080
	DefaultHeight            = 1920
)

// CompositionConfig is the per-job composition record. All numeric fields are
// always resolved to usable values, even when parsing partially fails.
type CompositionConfig struct {
	ID                string
	DurationInSeconds float64
	FPS               int
	Width             int
	Height            int
	DefaultProps      map[string]any
}

// DurationInFrames rounds durationInSeconds*fps to the nearest frame.
func (c CompositionConfig) DurationInFrames() int {
	return int(math.Round(c.DurationInSeconds * float64(c.FPS)))
}

var (
	// Non-greedy brace match bounded by the statement terminator. This is not
	// a TSX parser; it relies on the conventional single-assignment shape and
	// degrades via the per-field fallback for anything it captures badly.
	configAssignRe = regexp.MustCompile(`(?s)export\s+const\s+` + ConfigExportName + `\s*=\s*(\{.*?\})\s*;`)

	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe   = regexp.MustCompile(`//[^\n]*`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	singleQuotedRe = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)\s*:`)
)

// ExtractConfig locates the compositionConfig assignment in source text and
// resolves it to a fully populated CompositionConfig. A missing assignment is
// the only hard failure; a literal that resists structural evaluation degrades
// to per-field extraction, and unparseable fields degrade to defaults.
func ExtractConfig(source, sourcePath string) (CompositionConfig, error) {
	m := configAssignRe.FindStringSubmatch(source)
	if m == nil {
		return CompositionConfig{}, errors.Newf(errors.CodeConfigExtraction,
			"no %s export found in %s", ConfigExportName, filepath.Base(sourcePath))
	}

	literal := cleanLiteral(m[1])

	raw, err := evalObjectLiteral(literal)
	if err != nil {
		return fallbackExtract(literal, sourcePath), nil
	}
	return resolveConfig(raw, sourcePath), nil
}

// cleanLiteral strips comments and trailing commas from a captured object
// literal. Comment stripping is textual and can eat string contents in
// pathological sources; those fall through to the fallback extractor.
func cleanLiteral(s string) string {
	s = blockCommentRe.ReplaceAllString(s, "")
	s = lineCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// evalObjectLiteral parses a conventional JS object literal as JSON after
// normalizing single-quoted strings and bare keys. It never executes input.
func evalObjectLiteral(literal string) (map[string]any, error) {
	s := singleQuotedRe.ReplaceAllStringFunc(literal, func(q string) string {
		inner := q[1 : len(q)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("literal is not structurally evaluable: %w", err)
	}
	return out, nil
}

// resolveConfig backfills defaults over a structurally evaluated literal.
// Falsy-but-present numeric values (0) are treated as absent and replaced by
// their default; this mirrors established behavior and is asserted by tests.
func resolveConfig(raw map[string]any, sourcePath string) CompositionConfig {
	cfg := defaultConfig(sourcePath)

	if id, ok := raw["id"].(string); ok && id != "" {
		cfg.ID = id
	}
	if v := numberField(raw, "durationInSeconds"); v != 0 {
		cfg.DurationInSeconds = v
	}
	if v := numberField(raw, "fps"); v != 0 {
		cfg.FPS = int(v)
	}
	if v := numberField(raw, "width"); v != 0 {
		cfg.Width = int(v)
	}
	if v := numberField(raw, "height"); v != 0 {
		cfg.Height = int(v)
	}
	if props, ok := raw["defaultProps"].(map[string]any); ok {
		cfg.DefaultProps = props
	}
	return cfg
}

// fallbackExtract scans the literal field by field when structural evaluation
// fails: quoted-string pattern first, then bare numeric, first match wins.
// defaultProps is never recovered on this path.
func fallbackExtract(literal, sourcePath string) CompositionConfig {
	cfg := defaultConfig(sourcePath)

	if s, ok := fieldValue(literal, "id"); ok && s != "" {
		cfg.ID = s
	}
	if v, ok := fieldNumber(literal, "durationInSeconds"); ok && v != 0 {
		cfg.DurationInSeconds = v
	}
	if v, ok := fieldNumber(literal, "fps"); ok && v != 0 {
		cfg.FPS = int(v)
	}
	if v, ok := fieldNumber(literal, "width"); ok && v != 0 {
		cfg.Width = int(v)
	}
	if v, ok := fieldNumber(literal, "height"); ok && v != 0 {
		cfg.Height = int(v)
	}
	return cfg
}

func defaultConfig(sourcePath string) CompositionConfig {
	return CompositionConfig{
		ID:                BaseName(sourcePath),
		DurationInSeconds: DefaultDurationInSeconds,
		FPS:               DefaultFPS,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		DefaultProps:      map[string]any{},
	}
}

// BaseName returns the source file's name without directory or extension.
func BaseName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func numberField(raw map[string]any, key string) float64 {
	switch v := raw[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// fieldValue finds a field's raw value in the literal text: a quoted string
// first, then an unquoted numeric token.
func fieldValue(literal, field string) (string, bool) {
	quoted := regexp.MustCompile(field + `\s*:\s*['"]([^'"]*)['"]`)
	if m := quoted.FindStringSubmatch(literal); m != nil {
		return m[1], true
	}
	numeric := regexp.MustCompile(field + `\s*:\s*(-?\d+(?:\.\d+)?)`)
	if m := numeric.FindStringSubmatch(literal); m != nil {
		return m[1], true
	}
	return "", false
}

func fieldNumber(literal, field string) (float64, bool) {
	s, ok := fieldValue(literal, field)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
