// Package upload is the file-upload capability: multipart POSTs against
// the service's upload endpoint, returning the attachment descriptor a
// message can then reference.
package upload

import (
	"context"

	"github.com/vellumchat/vellum-go/domain"
)

// Endpoint selects the server-side upload kind.
type Endpoint string

const (
	EndpointFile   Endpoint = "file"
	EndpointAvatar Endpoint = "avatar"
)

// Uploader stores a blob and returns its attachment descriptor. A nil
// descriptor never comes back with a nil error: callers must not send a
// message referencing an attachment that failed to upload.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, filename string, endpoint Endpoint) (*domain.FileAttachment, error)
}
