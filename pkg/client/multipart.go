package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

// FileField is the part name uploaded files are sent under.
const FileField = "file"

// File is an uploaded file forwarded with a multipart post.
type File struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// PostMultipart sends values and files as multipart/form-data. Values are
// written in name order and files follow under FileField.
func (c *Client) PostMultipart(ctx context.Context, path string, values map[string]string, files []File, opts ...CallOption) (Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, values[name]); err != nil {
			return Response{}, fmt.Errorf("client: encode field %q: %w", name, err)
		}
	}

	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, quoteEscaper.Replace(file.Filename)))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return Response{}, fmt.Errorf("client: encode file %q: %w", file.Filename, err)
		}
		if file.Content != nil {
			if _, err := io.Copy(part, file.Content); err != nil {
				return Response{}, fmt.Errorf("client: encode file %q: %w", file.Filename, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return Response{}, fmt.Errorf("client: encode multipart: %w", err)
	}
	return c.send(ctx, path, &buf, w.FormDataContentType(), opts)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
