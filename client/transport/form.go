package transport

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
)

// FormData is an ordered multipart form, sent as multipart/form-data.
type FormData struct {
	parts []formPart
}

type formPart struct {
	name     string
	value    string
	filename string
	blob     *Blob
}

// NewFormData returns an empty form.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a plain field.
func (f *FormData) Append(name, value string) *FormData {
	f.parts = append(f.parts, formPart{name: name, value: value})
	return f
}

// AppendFile adds a file field carrying blob under filename.
func (f *FormData) AppendFile(name, filename string, blob Blob) *FormData {
	f.parts = append(f.parts, formPart{name: name, filename: filename, blob: &blob})
	return f
}

// Len returns the number of parts.
func (f *FormData) Len() int {
	return len(f.parts)
}

// encode renders the form, returning the body and its content type.
func (f *FormData) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range f.parts {
		if p.blob == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", fmt.Errorf("writing field[%s]: %w", p.name, err)
			}
			continue
		}

		ct := p.blob.Type
		if ct == "" {
			ct = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.name, p.filename))
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating part[%s]: %w", p.name, err)
		}
		if _, err := part.Write(p.blob.Data); err != nil {
			return nil, "", fmt.Errorf("writing part[%s]: %w", p.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
