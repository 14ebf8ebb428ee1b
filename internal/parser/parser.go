package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/charmap"
)

// Extractor turns a file into plain text. Implementations return an error
// instead of panicking; Extract converts every error into empty text.
type Extractor func(filePath string) (string, error)

var (
	extractors = map[string]Extractor{
		".pdf":  extractPDF,
		".docx": extractDOCX,
		".txt":  extractTXT,
		".md":   extractMarkdown,
		".pptx": extractPPTX,
		".xlsx": extractXLSX,
	}

	docxParagraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxTextRe      = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	pptxSlideRe     = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

// Supported reports whether the extension of filePath has an extractor.
func Supported(filePath string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filePath))]
	return ok
}

// Extract returns the text of filePath, dispatching on its extension.
// Unsupported, unreadable or corrupt files yield "".
func Extract(filePath, declaredType string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	log.Debug().Str("file", filePath).Str("declared_type", declaredType).Msg("Extracting text")

	extract, ok := extractors[ext]
	if !ok {
		log.Warn().Str("file", filePath).Str("ext", ext).Msg("Unsupported file type")
		return ""
	}

	content, err := safeExtract(extract, filePath)
	if err != nil {
		log.Error().Err(err).Str("file", filePath).Msg("Text extraction failed")
		return ""
	}

	content = strings.TrimSpace(content)
	log.Info().Str("file", filePath).Int("chars", len(content)).Msg("Extracted text")
	return content
}

// third-party parsers panic on some malformed inputs
func safeExtract(extract Extractor, filePath string) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return extract(filePath)
}

func extractPDF(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var content strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		if pageText == "" {
			continue
		}
		content.WriteString(pageText)
		content.WriteString("\n")
	}
	return content.String(), nil
}

func extractDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return docxParagraphs(r.Editable().GetContent()), nil
}

// docxParagraphs joins the non-blank paragraphs of a document.xml body.
func docxParagraphs(documentXML string) string {
	var paragraphs []string
	for _, p := range docxParagraphRe.FindAllString(documentXML, -1) {
		var para strings.Builder
		for _, m := range docxTextRe.FindAllStringSubmatch(p, -1) {
			para.WriteString(html.UnescapeString(m[1]))
		}
		if strings.TrimSpace(para.String()) == "" {
			continue
		}
		paragraphs = append(paragraphs, para.String())
	}
	return strings.Join(paragraphs, "\n")
}

func extractTXT(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return decodeText(data)
}

// decodeText reads data as UTF-8 and falls back to Latin-1.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text as latin-1: %w", err)
	}
	return string(decoded), nil
}

func extractMarkdown(filePath string) (string, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read markdown file: %w", err)
	}
	source, err := decodeText(raw)
	if err != nil {
		return "", err
	}
	return markdownToText([]byte(source)), nil
}

// markdownToText renders the text nodes of a markdown document, one block per line.
func markdownToText(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func extractPPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}
	defer f.Close()

	type slide struct {
		num  string
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := pptxSlideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open slide %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read slide %s: %w", file.Name, err)
		}
		if slideText := strings.TrimSpace(extractTextFromXML(string(data))); slideText != "" {
			slides = append(slides, slide{num: m[1], text: slideText})
		}
	}

	// zip order is not slide order
	sort.Slice(slides, func(i, j int) bool {
		if len(slides[i].num) != len(slides[j].num) {
			return len(slides[i].num) < len(slides[j].num)
		}
		return slides[i].num < slides[j].num
	})

	texts := make([]string, len(slides))
	for i, s := range slides {
		texts[i] = s.text
	}
	return strings.Join(texts, "\n"), nil
}

func extractXLSX(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var content strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			content.WriteString(line)
			content.WriteString("\n")
		}
	}
	return content.String(), nil
}

func extractTextFromXML(xmlContent string) string {
	var content strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			content.WriteString(html.UnescapeString(part[:endIdx]) + " ")
		}
	}
	return content.String()
}
