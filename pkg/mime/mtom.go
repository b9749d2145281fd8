// Package mime implements MTOM multipart/related body encoding for SOAP requests.
package mime

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// ContentTypeMultipartRelated is the outer MIME type of an MTOM body
	ContentTypeMultipartRelated = "multipart/related"
	// ContentTypeXOP is the MIME type of the primary XOP part
	ContentTypeXOP = "application/xop+xml"
	// ContentTypeTextXML is the MIME type carried in start-info
	ContentTypeTextXML = "text/xml"
	// ContentTypeURLEncoded is the content type of plain string bodies
	ContentTypeURLEncoded = "application/x-www-form-urlencoded"
)

// Attachment is a binary payload sent alongside the primary SOAP part.
// Body is consumed once while the request body is assembled. A
// ContentID left empty is generated; ids must be unique within a
// request.
type Attachment struct {
	Name        string
	ContentID   string
	ContentType string
	Body        io.Reader
}

// UsesMTOM reports whether a string payload with the given options
// selects the multipart encoding.
func UsesMTOM(attachments []Attachment, forceMTOM bool) bool {
	return len(attachments) > 0 || forceMTOM
}

// EncodePlain prepares header for a verbatim string body:
// Content-Length is the payload's UTF-8 byte length and the content
// type defaults to urlencoded. Callers overriding Content-Type after
// this keep their value.
func EncodePlain(payload string, header http.Header) {
	header.Set("Content-Length", strconv.Itoa(len(payload)))
	header.Set("Content-Type", ContentTypeURLEncoded)
}

// EncodeMTOM packages payload and attachments as multipart/related with
// XOP wrapping and rewrites header's Content-Type accordingly. An
// action="..." parameter found on the existing Content-Type is carried
// over to the new value. The returned buffer is the complete request
// body.
func EncodeMTOM(payload string, attachments []Attachment, header http.Header) (*bytes.Buffer, error) {
	primaryID := fmt.Sprintf("%s@go-soap-http", uuid.New().String())
	boundary := generateBoundary()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("setting boundary: %w", err)
	}

	primaryHeader := textproto.MIMEHeader{}
	primaryHeader.Set("Content-Type", fmt.Sprintf("%s; charset=UTF-8; type=%q", ContentTypeXOP, ContentTypeTextXML))
	primaryHeader.Set("Content-ID", AddContentIDBrackets(primaryID))

	primary, err := writer.CreatePart(primaryHeader)
	if err != nil {
		return nil, fmt.Errorf("creating envelope part: %w", err)
	}
	if _, err := io.WriteString(primary, payload); err != nil {
		return nil, fmt.Errorf("writing envelope part: %w", err)
	}

	for _, att := range attachments {
		contentID := att.ContentID
		if contentID == "" {
			contentID = fmt.Sprintf("%s@go-soap-http", uuid.New().String())
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Type", contentType)
		partHeader.Set("Content-Transfer-Encoding", "binary")
		partHeader.Set("Content-ID", AddContentIDBrackets(contentID))
		partHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))

		part, err := writer.CreatePart(partHeader)
		if err != nil {
			return nil, fmt.Errorf("creating attachment part %q: %w", att.Name, err)
		}
		if att.Body != nil {
			if _, err := io.Copy(part, att.Body); err != nil {
				return nil, fmt.Errorf("writing attachment %q: %w", att.Name, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	params := map[string]string{
		"type":       ContentTypeXOP,
		"start":      AddContentIDBrackets(primaryID),
		"start-info": ContentTypeTextXML,
		"boundary":   boundary,
	}
	// SOAP 1.2 carries the operation in an action parameter; keep it.
	if action := actionParam(header.Get("Content-Type")); action != "" {
		params["action"] = action
	}
	header.Set("Content-Type", mime.FormatMediaType(ContentTypeMultipartRelated, params))
	header.Del("Content-Length")

	return &buf, nil
}

// actionParam extracts the action parameter from a Content-Type header
// value, or "" when absent.
func actionParam(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["action"]
}

// generateBoundary generates a MIME boundary string
func generateBoundary() string {
	return fmt.Sprintf("----=_Part_%s", strings.ReplaceAll(uuid.New().String(), "-", ""))
}

// AddContentIDBrackets adds < and > to a Content-ID if not present
func AddContentIDBrackets(contentID string) string {
	if !strings.HasPrefix(contentID, "<") {
		contentID = "<" + contentID
	}
	if !strings.HasSuffix(contentID, ">") {
		contentID = contentID + ">"
	}
	return contentID
}

// StripContentIDBrackets removes a cid: prefix and surrounding angle
// brackets from a Content-ID reference.
func StripContentIDBrackets(contentID string) string {
	contentID = strings.TrimPrefix(contentID, "cid:")
	contentID = strings.TrimPrefix(contentID, "<")
	contentID = strings.TrimSuffix(contentID, ">")
	return contentID
}
