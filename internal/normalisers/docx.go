package normalisers

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

type docxBody struct {
	Paragraphs []struct {
		Runs []struct {
			Text []string `xml:"t"`
		} `xml:"r"`
	} `xml:"body>p"`
}

type docxCore struct {
	Title string `xml:"title"`
}

// DOCX extracts paragraph text from word/document.xml. The title comes from
// the document properties when set.
func DOCX(name string, data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, &domain.ValidationError{Field: "content", Reason: "not a docx archive"}
	}

	body, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return Result{}, err
	}
	if body == nil {
		return Result{}, &domain.ValidationError{Field: "content", Reason: "docx archive has no word/document.xml"}
	}

	var doc docxBody
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Result{}, fmt.Errorf("parsing document.xml: %w", err)
	}

	var sb strings.Builder
	for i, p := range doc.Paragraphs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t)
			}
		}
	}

	title := titleFromName(name)
	if core, _ := readZipEntry(zr, "docProps/core.xml"); core != nil {
		var props docxCore
		if xml.Unmarshal(core, &props) == nil && strings.TrimSpace(props.Title) != "" {
			title = strings.TrimSpace(props.Title)
		}
	}

	return Result{Title: title, Content: strings.TrimSpace(sb.String()), Format: "docx"}, nil
}

// readZipEntry returns nil when the entry does not exist.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}
