package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/pkg/errors"
)

// ProjectLayout is the on-disk temp project generated for one job. The
// orchestrator owns it exclusively and removes the whole Root on every exit
// path; synthesis itself never cleans up after a partial write.
type ProjectLayout struct {
	Root      string
	EntryFile string
	RootFile  string
}

// SynthesizeProject materializes a minimal host project referencing the user's
// source file: a src/index.ts entry registering the root loader, a src/Root.tsx
// declaring exactly one composition from cfg, and the tooling files the
// external bundler needs. The user's source file is never touched.
func SynthesizeProject(sourcePath string, cfg CompositionConfig, style ExportStyle) (*ProjectLayout, error) {
	root, err := os.MkdirTemp("", "clipforge-project-")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeProjectSynthesis,
			"project.synthesize", "failed to create project root")
	}

	layout := &ProjectLayout{
		Root:      root,
		EntryFile: filepath.Join(root, "src", "index.ts"),
		RootFile:  filepath.Join(root, "src", "Root.tsx"),
	}

	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		return layout, errors.WrapWithCode(err, errors.CodeProjectSynthesis,
			"project.synthesize", "failed to create src directory")
	}

	files := map[string]string{
		layout.EntryFile:                     entryFileSource(),
		layout.RootFile:                      rootFileSource(sourcePath, cfg, style),
		filepath.Join(root, "tsconfig.json"): tsconfigSource(),
		filepath.Join(root, "package.json"):  packageJSONSource(),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return layout, errors.WrapWithCode(err, errors.CodeProjectSynthesis,
				"project.synthesize", fmt.Sprintf("failed to write %s", filepath.Base(path)))
		}
	}

	return layout, nil
}

func entryFileSource() string {
	return `import {registerRoot} from 'remotion';
import {RemotionRoot} from './Root';

registerRoot(RemotionRoot);
`
}

func rootFileSource(sourcePath string, cfg CompositionConfig, style ExportStyle) string {
	props, err := json.Marshal(cfg.DefaultProps)
	if err != nil {
		props = []byte("{}")
	}

	return fmt.Sprintf(`import React from 'react';
import {Composition} from 'remotion';
%s

export const RemotionRoot: React.FC = () => {
  return (
    <Composition
      id=%q
      component={UserComposition}
      durationInFrames={%d}
      fps={%d}
      width={%d}
      height={%d}
      defaultProps={%s}
    />
  );
};
`,
		importStatement(sourcePath, style),
		cfg.ID,
		cfg.DurationInFrames(),
		cfg.FPS,
		cfg.Width,
		cfg.Height,
		string(props),
	)
}

// importStatement references the user's file from the generated module.
// Separators are normalized to forward slashes so the specifier is valid on
// any host OS, and the extension is dropped for the bundler's resolver.
func importStatement(sourcePath string, style ExportStyle) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	specifier := strings.TrimSuffix(filepath.ToSlash(abs), filepath.Ext(abs))

	if style.Kind == ExportDefault {
		return fmt.Sprintf("import UserComposition from '%s';", specifier)
	}
	return fmt.Sprintf("import {%s as UserComposition} from '%s';", style.Name, specifier)
}

func tsconfigSource() string {
	return `{
  "compilerOptions": {
    "target": "ES2020",
    "module": "ESNext",
    "moduleResolution": "bundler",
    "jsx": "react-jsx",
    "strict": false,
    "esModuleInterop": true,
    "allowJs": true,
    "skipLibCheck": true,
    "noEmit": true
  },
  "include": ["src"]
}
`
}

func packageJSONSource() string {
	return `{
  "name": "clipforge-temp-project",
  "private": true,
  "version": "0.0.0"
}
`
}
