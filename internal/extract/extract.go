// Package extract reads resume documents from disk and returns their text.
package extract

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	extText = ".txt"
	extPDF  = ".pdf"
	extDOCX = ".docx"
)

var errNotUTF8 = errors.New("content is not valid UTF-8 text")

// FileReadError reports a resume that could not be read or decoded.
type FileReadError struct {
	Path  string
	Cause error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read resume file %q: %v", e.Path, e.Cause)
}

func (e *FileReadError) Unwrap() error {
	return e.Cause
}

// ReadResumeFile returns the text content of the resume at path.
// Plain text is returned unchanged, PDF and DOCX documents are converted to text,
// and any other extension is decoded as UTF-8 on a best-effort basis.
func ReadResumeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FileReadError{Path: path, Cause: err}
	}

	text, err := Text(filepath.Ext(path), data)
	if err != nil {
		return "", &FileReadError{Path: path, Cause: err}
	}

	return text, nil
}

// Text converts document bytes to text according to the file extension.
func Text(ext string, data []byte) (string, error) {
	switch strings.ToLower(ext) {
	case extPDF:
		return pdfText(data)
	case extDOCX:
		return docxText(data)
	default:
		// .txt and unknown extensions
		if !utf8.Valid(data) {
			return "", errNotUTF8
		}
		return string(data), nil
	}
}

func pdfText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("extract pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		builder.WriteString(content)
	}

	return builder.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return wordXMLText(doc.Editable().GetContent())
}

// wordXMLText collects the run text of a WordprocessingML body, ending each
// paragraph with a newline.
func wordXMLText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var (
		builder strings.Builder
		inText  bool
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode docx body: %w", err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				builder.WriteByte('\t')
			case "br", "cr":
				builder.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				builder.Write(el)
			}
		}
	}

	return strings.TrimRight(builder.String(), "\n"), nil
}
