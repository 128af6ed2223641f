package styles

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	out := Markdown("# objgraph\n\n* records: **3**\n", 60)
	if !strings.Contains(out, "objgraph") || !strings.Contains(out, "records") {
		t.Errorf("Markdown() = %q", out)
	}
}
