package render

import "regexp"

// ExportKind describes how the user's component is exposed by its module.
type ExportKind string

const (
	ExportDefault ExportKind = "default"
	ExportNamed   ExportKind = "named"
)

// ExportStyle drives import synthesis for the generated root file.
// Name is empty for default exports.
type ExportStyle struct {
	Kind ExportKind
	Name string
}

var (
	defaultExportRe = regexp.MustCompile(`export\s+default\b`)
	namedExportRe   = regexp.MustCompile(`export\s+(?:const|function)\s+([A-Z][A-Za-z0-9_]*)`)
)

// DetectExportStyle inspects source text for the renderable component export.
// A default-export marker anywhere wins. Otherwise the first capitalized
// named export (const or function) in source order is taken, skipping the
// reserved config export. With neither present, the file base name is assumed
// to be a named export.
func DetectExportStyle(source, sourcePath string) ExportStyle {
	if defaultExportRe.MatchString(source) {
		return ExportStyle{Kind: ExportDefault}
	}

	for _, m := range namedExportRe.FindAllStringSubmatch(source, -1) {
		if m[1] == ConfigExportName {
			continue
		}
		return ExportStyle{Kind: ExportNamed, Name: m[1]}
	}

	return ExportStyle{Kind: ExportNamed, Name: BaseName(sourcePath)}
}
