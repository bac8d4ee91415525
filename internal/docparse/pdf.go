// Adapted from https://github.com/koushamad/PDFtoMD/blob/master/PDFtoMD.go

package docparse

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gen2brain/go-fitz"
)

// inlineImageRe matches base64 images embedded in converted markdown.
// Policy documents scan poorly with these left in, and they bloat the
// text handed to the splitter.
var inlineImageRe = regexp.MustCompile(`!\[\]\(data:image/[^)]+\)`)

// PDFToMarkdown renders each page of the document to HTML and converts
// the result to markdown, stripping embedded images.
func PDFToMarkdown(contents []byte) (string, error) {
	doc, err := fitz.NewFromMemory(contents)
	if err != nil {
		return "", fmt.Errorf("error opening pdf: %w", err)
	}
	defer doc.Close()

	converter := md.NewConverter("", true, nil)

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		html, err := doc.HTML(i, true)
		if err != nil {
			return "", fmt.Errorf("error rendering pdf page %d: %w", i, err)
		}

		text, err := converter.ConvertString(html)
		if err != nil {
			return "", fmt.Errorf("error converting pdf page %d: %w", i, err)
		}

		pages = append(pages, inlineImageRe.ReplaceAllString(text, ""))
	}

	return strings.Join(pages, "\n\n"), nil
}

// IsPDF reports whether a document should go through the PDF converter,
// by extension first and magic bytes as a fallback.
func IsPDF(name string, contents []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return true
	}
	return len(contents) >= 5 && string(contents[:5]) == "%PDF-"
}
