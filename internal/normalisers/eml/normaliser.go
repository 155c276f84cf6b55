package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles RFC 822 mail messages.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts headers and the readable body of a message. The subject
// becomes the title; plain text parts win over HTML parts.
func (n *Normaliser) Normalise(_ context.Context, in driven.NormaliseInput) (*driven.NormaliseResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(in.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse message: %v", domain.ErrInvalidInput, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	date := msg.Header.Get("Date")

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, h := range []struct{ name, value string }{
		{"From", from}, {"To", to}, {"Date", date}, {"Subject", subject},
	} {
		if h.value != "" {
			fmt.Fprintf(&content, "%s: %s\n", h.name, h.value)
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	title := subject
	if title == "" {
		title = extractTitleFromPath(in.Path)
	}

	meta := map[string]string{
		"mime_type": in.MIMEType,
		"format":    "eml",
	}
	if from != "" {
		meta["from"] = from
	}
	if to != "" {
		meta["to"] = to
	}
	if date != "" {
		meta["date"] = date
	}
	if id := msg.Header.Get("Message-Id"); id != "" {
		meta["message_id"] = strings.Trim(id, "<>")
	}

	return &driven.NormaliseResult{
		Title:    title,
		Text:     strings.TrimSpace(content.String()),
		Metadata: meta,
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// decodeTransfer undoes a Content-Transfer-Encoding.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// extractBody returns the text of a single part or a multipart tree.
func extractBody(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(decodeTransfer(encoding, r))
		if readErr != nil {
			return "", fmt.Errorf("%w: read body: %v", domain.ErrInvalidInput, readErr)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(r, params["boundary"]), nil
	}

	body, err := io.ReadAll(decodeTransfer(encoding, r))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrInvalidInput, err)
	}
	if mediaType == "text/html" {
		return htmlText(body), nil
	}
	return string(body), nil
}

// extractMultipartBody collects text parts, recursing into nested multiparts.
// Attachments are ignored.
func extractMultipartBody(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "text/plain"
		}
		if disp, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disp == "attachment" {
			part.Close()
			continue
		}

		// multipart.Reader already decodes quoted-printable parts.
		content, readErr := io.ReadAll(decodeTransfer(base64Only(part.Header.Get("Content-Transfer-Encoding")), part))
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, htmlText(content))
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := extractMultipartBody(bytes.NewReader(content), params["boundary"]); nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n")
	}
	return strings.Join(htmlParts, "\n")
}

func base64Only(encoding string) string {
	if strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return "base64"
	}
	return ""
}

func htmlText(body []byte) string {
	_, text, err := html.Extract(body)
	if err != nil {
		return string(body)
	}
	return text
}

// extractTitleFromPath derives a title from the last path segment. Mailbox
// item paths use '#' as separator.
func extractTitleFromPath(path string) string {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		path = path[i+1:]
	}
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
