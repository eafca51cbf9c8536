package testutil

// SampleMarkdown maps relative paths to markdown content for seeding a
// local sync directory.
var SampleMarkdown = map[string]string{
	"notes/farm diary.md": "# Farm Diary\n\nFed the chickens. Moved the fence line.\n",
	"notes/recipes.md":    "# Recipes\n\n## Bread\n\n- flour\n- water\n- salt\n",
	"journal.txt":         "2025-03-14: clear skies.\n",
}

// SamplePDF is a minimal but structurally valid PDF payload for tests
// that only care about bytes round-tripping.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
