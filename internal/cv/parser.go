// Package cv reads resume documents, pulls contact details out of their
// text and runs that work over a bounded worker pool.
package cv

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// SupportedExtensions lists the document types the parser understands.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".rtf", ".odt", ".txt"}

type Parser struct {
	uploadsDir string
}

type ParsedCV struct {
	Filename string  `json:"filename"`
	FileType string  `json:"file_type"`
	FileSize int64   `json:"file_size"`
	FullText string  `json:"-"`
	Contact  Contact `json:"contact"`
}

func NewParser(uploadsDir string) *Parser {
	return &Parser{
		uploadsDir: uploadsDir,
	}
}

// UploadsDir is where uploaded documents are stored.
func (p *Parser) UploadsDir() string { return p.uploadsDir }

// Supported reports whether the file extension can be parsed.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ParseFile stores an uploaded document under the uploads directory and
// parses it.
func (p *Parser) ParseFile(filename string, reader io.Reader) (*ParsedCV, error) {
	filename = filepath.Base(filename)
	if !Supported(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	if err := os.MkdirAll(p.uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}

	filePath := filepath.Join(p.uploadsDir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	_, err = io.Copy(file, reader)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return p.ParsePath(filePath)
}

// ParsePath extracts the text of a document already on disk and the contact
// details found in it.
func (p *Parser) ParsePath(path string) (*ParsedCV, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileType := strings.ToLower(filepath.Ext(path))
	var text string

	switch fileType {
	case ".pdf":
		text, err = pdfText(path)
	case ".docx", ".doc", ".rtf", ".odt":
		var res *docconv.Response
		res, err = docconv.ConvertPath(path)
		if err == nil {
			text = res.Body
		}
	case ".txt":
		var content []byte
		content, err = os.ReadFile(path)
		text = string(content)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	return &ParsedCV{
		Filename: filepath.Base(path),
		FileType: fileType,
		FileSize: info.Size(),
		FullText: text,
		Contact:  ExtractContact(text),
	}, nil
}

// pdfText tries docconv first; when it fails or yields nothing (its PDF path
// shells out to poppler), the pure Go reader is used.
func pdfText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err == nil && strings.TrimSpace(res.Body) != "" {
		return res.Body, nil
	}

	file, ferr := os.Open(path)
	if ferr != nil {
		return "", ferr
	}
	defer file.Close()

	fileInfo, ferr := file.Stat()
	if ferr != nil {
		return "", ferr
	}
	pdfReader, ferr := pdf.NewReader(file, fileInfo.Size())
	if ferr != nil {
		if err != nil {
			return "", fmt.Errorf("%v; fallback reader: %w", err, ferr)
		}
		return "", ferr
	}

	var text strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}
