package normalisers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/custodia-labs/docindex/internal/core/domain"
)

// EML renders an RFC 822 message as its headers followed by the body. Plain
// text parts win over HTML parts; the subject becomes the title.
func EML(name string, data []byte) (Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return Result{}, &domain.ValidationError{Field: "content", Reason: "not an RFC 822 message"}
	}

	dec := new(mime.WordDecoder)
	header := func(key string) string {
		v := msg.Header.Get(key)
		if decoded, err := dec.DecodeHeader(v); err == nil {
			return decoded
		}
		return v
	}

	body, err := emailBody(msg.Header.Get("Content-Type"), msg.Body)
	if err != nil {
		return Result{}, err
	}

	var sb strings.Builder
	for _, key := range []string{"From", "To", "Date", "Subject"} {
		if v := header(key); v != "" {
			sb.WriteString(key + ": " + v + "\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(body)

	title := header("Subject")
	if title == "" {
		title = titleFromName(name)
	}
	return Result{Title: title, Content: strings.TrimSpace(sb.String()), Format: "eml"}, nil
}

func emailBody(contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(r, params["boundary"])
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return stripHTML(string(data)), nil
	}
	return string(data), nil
}

func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	var text, htmlParts []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			mediaType = "text/plain"
		}
		if part.FileName() != "" {
			continue
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, err := multipartBody(part, params["boundary"])
			if err != nil {
				return "", err
			}
			if nested != "" {
				text = append(text, nested)
			}
		case mediaType == "text/plain" || mediaType == "text/html":
			data, err := io.ReadAll(part)
			if err != nil {
				return "", err
			}
			if mediaType == "text/html" {
				htmlParts = append(htmlParts, stripHTML(string(data)))
			} else {
				text = append(text, string(data))
			}
		}
	}

	if len(text) > 0 {
		return strings.Join(text, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}
