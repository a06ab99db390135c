// Package pdfext extracts plain text from bank statement PDFs, including
// password-protected ones.
package pdfext

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// maxTextBytes caps extracted text so a malformed PDF cannot balloon memory.
const maxTextBytes = 256 * 1024

// ExtractText returns the concatenated plain text of every page. An empty
// password opens unprotected documents; statement PDFs are typically locked
// with the account holder's ID number.
func ExtractText(data []byte, password string) (_ string, err error) {
	defer func() {
		// The parser panics on some malformed cross reference tables.
		if r := recover(); r != nil {
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), func() string {
		return password
	})
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	text, err := io.ReadAll(io.LimitReader(plain, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(text), nil
}

// IsPDF sniffs the PDF magic bytes. Statement uploads are classified by
// content, not by file name.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}
