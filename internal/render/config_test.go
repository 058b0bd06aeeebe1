package render

import (
	"strings"
	"testing"

	"clipforge/internal/pkg/errors"
)

func TestExtractConfigFullLiteral(t *testing.T) {
	source := `
import React from 'react';

export const compositionConfig = { id: 'demo', fps: 24, width: 640, height: 480, durationInSeconds: 2 };

export default function Demo() { return <div/>; }
`
	cfg, err := ExtractConfig(source, "/tmp/demo.tsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ID != "demo" {
		t.Errorf("expected id=demo, got %s", cfg.ID)
	}
	if cfg.FPS != 24 {
		t.Errorf("expected fps=24, got %d", cfg.FPS)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.DurationInSeconds != 2 {
		t.Errorf("expected durationInSeconds=2, got %v", cfg.DurationInSeconds)
	}
	if cfg.DurationInFrames() != 48 {
		t.Errorf("expected 48 frames, got %d", cfg.DurationInFrames())
	}
	if len(cfg.DefaultProps) != 0 {
		t.Errorf("expected empty defaultProps, got %v", cfg.DefaultProps)
	}
}

func TestExtractConfigBackfillsDefaults(t *testing.T) {
	tests := []struct {
		name    string
		literal string
		check   func(t *testing.T, cfg CompositionConfig)
	}{
		{
			name:    "empty literal",
			literal: `{}`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.ID != "clip" {
					t.Errorf("expected id from file base name, got %s", cfg.ID)
				}
				if cfg.DurationInSeconds != DefaultDurationInSeconds {
					t.Errorf("expected default duration, got %v", cfg.DurationInSeconds)
				}
				if cfg.FPS != DefaultFPS {
					t.Errorf("expected default fps, got %d", cfg.FPS)
				}
				if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
					t.Errorf("expected default dimensions, got %dx%d", cfg.Width, cfg.Height)
				}
				if cfg.DefaultProps == nil {
					t.Error("defaultProps must never be nil")
				}
			},
		},
		{
			name:    "partial literal keeps present fields",
			literal: `{ id: 'intro', width: 720 }`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.ID != "intro" {
					t.Errorf("expected id=intro, got %s", cfg.ID)
				}
				if cfg.Width != 720 {
					t.Errorf("expected width=720, got %d", cfg.Width)
				}
				if cfg.Height != DefaultHeight {
					t.Errorf("expected default height, got %d", cfg.Height)
				}
			},
		},
		{
			name:    "falsy fps replaced by default",
			literal: `{ id: 'z', fps: 0 }`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.FPS != DefaultFPS {
					t.Errorf("explicit fps:0 must yield default %d, got %d", DefaultFPS, cfg.FPS)
				}
			},
		},
		{
			name:    "falsy width and height replaced by default",
			literal: `{ width: 0, height: 0 }`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
					t.Errorf("explicit 0 dimensions must yield defaults, got %dx%d", cfg.Width, cfg.Height)
				}
			},
		},
		{
			name:    "nested defaultProps",
			literal: `{ id: 'card', defaultProps: { title: 'Hello', count: 2 } }`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.DefaultProps["title"] != "Hello" {
					t.Errorf("expected title prop, got %v", cfg.DefaultProps)
				}
			},
		},
		{
			name: "comments and trailing commas stripped",
			literal: `{
				// composition id
				id: 'clean',
				/* frames per second */
				fps: 25,
			}`,
			check: func(t *testing.T, cfg CompositionConfig) {
				if cfg.ID != "clean" {
					t.Errorf("expected id=clean, got %s", cfg.ID)
				}
				if cfg.FPS != 25 {
					t.Errorf("expected fps=25, got %d", cfg.FPS)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "export const compositionConfig = " + tt.literal + ";"
			cfg, err := ExtractConfig(source, "/somewhere/clip.tsx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestExtractConfigFallbackOnMalformedLiteral(t *testing.T) {
	// Unquoted identifier value defeats structural evaluation; the per-field
	// pass still recovers what it can.
	source := `export const compositionConfig = { id: 'demo', fps: 24, easing: easeInOut };`

	cfg, err := ExtractConfig(source, "/tmp/broken.tsx")
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if cfg.ID != "demo" {
		t.Errorf("expected id recovered by fallback, got %s", cfg.ID)
	}
	if cfg.FPS != 24 {
		t.Errorf("expected fps recovered by fallback, got %d", cfg.FPS)
	}
	if len(cfg.DefaultProps) != 0 {
		t.Errorf("fallback never recovers defaultProps, got %v", cfg.DefaultProps)
	}
}

func TestExtractConfigFallbackOnTruncatedCapture(t *testing.T) {
	// The statement terminator inside a string truncates the capture; the
	// result is unparseable but still yields a usable, default-filled config.
	source := `export const compositionConfig = { id: 'demo', note: 'x};', fps: 24 };`

	cfg, err := ExtractConfig(source, "/tmp/tricky.tsx")
	if err != nil {
		t.Fatalf("truncated capture must not error: %v", err)
	}
	if cfg.ID != "demo" {
		t.Errorf("expected id=demo, got %s", cfg.ID)
	}
	// fps lies beyond the truncation point, so the default applies.
	if cfg.FPS != DefaultFPS {
		t.Errorf("expected default fps, got %d", cfg.FPS)
	}
}

func TestExtractConfigQuotedNumbers(t *testing.T) {
	source := `export const compositionConfig = { id: 'q', fps: '24', width: '640' };`

	cfg, err := ExtractConfig(source, "/tmp/q.tsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FPS != 24 {
		t.Errorf("expected quoted fps parsed, got %d", cfg.FPS)
	}
	if cfg.Width != 640 {
		t.Errorf("expected quoted width parsed, got %d", cfg.Width)
	}
}

func TestExtractConfigMissingPattern(t *testing.T) {
	source := `export default function Nothing() { return null; }`

	_, err := ExtractConfig(source, "/uploads/nothing.tsx")
	if err == nil {
		t.Fatal("expected error when no config export exists")
	}
	if !errors.IsCode(err, errors.CodeConfigExtraction) {
		t.Errorf("expected CONFIG_EXTRACTION_ERROR, got %s", errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "nothing.tsx") {
		t.Errorf("error must name the offending file, got: %v", err)
	}
}

func TestDurationInFramesRounding(t *testing.T) {
	tests := []struct {
		duration float64
		fps      int
		want     int
	}{
		{2, 24, 48},
		{5, 30, 150},
		{1.9, 25, 48},  // 47.5 rounds up
		{2.49, 10, 25}, // 24.9 rounds up
		{2.44, 10, 24}, // 24.4 rounds down
	}

	for _, tt := range tests {
		cfg := CompositionConfig{DurationInSeconds: tt.duration, FPS: tt.fps}
		if got := cfg.DurationInFrames(); got != tt.want {
			t.Errorf("DurationInFrames(%vs @%dfps) = %d, want %d", tt.duration, tt.fps, got, tt.want)
		}
	}
}
