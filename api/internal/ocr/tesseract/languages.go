package tesseract

import "strings"

// normalizeLanguages trims and drops empty codes; the default is "eng".
func normalizeLanguages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		out = []string{"eng"}
	}
	return out
}
