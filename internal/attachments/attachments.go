package attachments

import (
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"edinsights/internal/adapters/config"
	"edinsights/internal/metrics"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// Upload is one file received with a chat request, already read fully into
// memory by the HTTP layer.
type Upload struct {
	Filename string
	Data     []byte
}

// Kind classifies an accepted attachment for size-cap purposes.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

// Attachment is a validated upload with its sniffed media type.
type Attachment struct {
	Filename string
	MIME     string
	Kind     Kind
	Data     []byte
}

// allowedTypes maps accepted media types to their attachment kind. The type
// comes from content sniffing, never from the client-supplied filename or
// Content-Type header.
var allowedTypes = map[string]Kind{
	"image/png":       KindImage,
	"image/jpeg":      KindImage,
	"image/webp":      KindImage,
	"application/pdf": KindDocument,
	"text/plain":      KindDocument,
}

// Service validates uploads before anything else in the turn runs. A
// rejected attachment fails the whole request with a validation error; no
// tool or model call happens first.
type Service struct {
	cfg config.AttachmentsConfig
	log *logger.Logger
}

// NewService creates the attachment validation service.
func NewService(cfg config.AttachmentsConfig, log *logger.Logger) *Service {
	return &Service{cfg: cfg, log: log.With("component", "attachments")}
}

// Validate checks every upload against the type whitelist and size caps.
func (s *Service) Validate(uploads []Upload) ([]Attachment, error) {
	if len(uploads) > s.cfg.MaxPerRequest {
		metrics.AttachmentsRejected.WithLabelValues("too_many").Inc()
		return nil, errors.NewValidationError("attachments",
			"too many attachments", len(uploads))
	}

	accepted := make([]Attachment, 0, len(uploads))
	for _, up := range uploads {
		att, err := s.validateOne(up)
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, att)
		metrics.AttachmentsAccepted.WithLabelValues(string(att.Kind)).Inc()
	}
	return accepted, nil
}

func (s *Service) validateOne(up Upload) (Attachment, error) {
	if len(up.Data) == 0 {
		metrics.AttachmentsRejected.WithLabelValues("unreadable").Inc()
		return Attachment{}, errors.NewValidationError("attachments",
			"attachment is empty or unreadable", up.Filename)
	}

	mime := mimetype.Detect(up.Data)
	kind, ok := lookupKind(mime.String())
	if !ok {
		metrics.AttachmentsRejected.WithLabelValues("unsupported_type").Inc()
		return Attachment{}, errors.NewValidationError("attachments",
			"unsupported attachment type "+mime.String(), up.Filename)
	}

	limit := s.cfg.MaxDocumentBytes
	if kind == KindImage {
		limit = s.cfg.MaxImageBytes
	}
	if int64(len(up.Data)) > limit {
		metrics.AttachmentsRejected.WithLabelValues("oversized").Inc()
		return Attachment{}, errors.NewValidationError("attachments",
			"attachment exceeds size limit", up.Filename)
	}

	s.log.Debugf("Attachment accepted: name=%s type=%s bytes=%d", up.Filename, mime.String(), len(up.Data))
	return Attachment{
		Filename: up.Filename,
		MIME:     normalizeMIME(mime.String()),
		Kind:     kind,
		Data:     up.Data,
	}, nil
}

// ToParts converts validated attachments to model content parts.
func ToParts(atts []Attachment) []*genai.Part {
	parts := make([]*genai.Part, 0, len(atts))
	for _, att := range atts {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: att.MIME,
				Data:     att.Data,
			},
		})
	}
	return parts
}

// lookupKind matches a sniffed media type against the whitelist, ignoring
// parameters like "; charset=utf-8" that mimetype appends to text types.
func lookupKind(mime string) (Kind, bool) {
	kind, ok := allowedTypes[normalizeMIME(mime)]
	return kind, ok
}

func normalizeMIME(mime string) string {
	for i := 0; i < len(mime); i++ {
		if mime[i] == ';' {
			return mime[:i]
		}
	}
	return mime
}
