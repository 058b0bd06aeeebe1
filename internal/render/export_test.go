package render

import "testing"

func TestDetectExportStyle(t *testing.T) {
	tests := []struct {
		name   string
		source string
		path   string
		want   ExportStyle
	}{
		{
			name:   "default export wins",
			source: `export default function Thing() {}`,
			path:   "/tmp/thing.tsx",
			want:   ExportStyle{Kind: ExportDefault},
		},
		{
			name: "default export wins over named exports",
			source: `
export const VideoCard = () => null;
export default VideoCard;
`,
			path: "/tmp/card.tsx",
			want: ExportStyle{Kind: ExportDefault},
		},
		{
			name:   "named const export",
			source: `export const IntroScene = () => null;`,
			path:   "/tmp/intro.tsx",
			want:   ExportStyle{Kind: ExportNamed, Name: "IntroScene"},
		},
		{
			name:   "named function export",
			source: `export function TitleCard() { return null; }`,
			path:   "/tmp/title.tsx",
			want:   ExportStyle{Kind: ExportNamed, Name: "TitleCard"},
		},
		{
			name: "config export skipped, next capitalized export taken",
			source: `
export const compositionConfig = { id: 'x' };
export const Banner = () => null;
`,
			path: "/tmp/banner.tsx",
			want: ExportStyle{Kind: ExportNamed, Name: "Banner"},
		},
		{
			name:   "first named export in source order",
			source: "export const First = () => null;\nexport const Second = () => null;",
			path:   "/tmp/order.tsx",
			want:   ExportStyle{Kind: ExportNamed, Name: "First"},
		},
		{
			name:   "lowercase exports ignored",
			source: `export const helper = () => null;`,
			path:   "/uploads/MyClip.tsx",
			want:   ExportStyle{Kind: ExportNamed, Name: "MyClip"},
		},
		{
			name:   "no exports falls back to file base name",
			source: `const x = 1;`,
			path:   "/uploads/Fallback.tsx",
			want:   ExportStyle{Kind: ExportNamed, Name: "Fallback"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectExportStyle(tt.source, tt.path)
			if got != tt.want {
				t.Errorf("DetectExportStyle() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
