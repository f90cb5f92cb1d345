package attachments

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edinsights/internal/adapters/config"
	"edinsights/pkg/errors"
	"edinsights/pkg/logger"
)

// Minimal valid PNG header followed by padding.
func pngBytes(size int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if size < len(header) {
		return header
	}
	return append(header, bytes.Repeat([]byte{0}, size-len(header))...)
}

func pdfBytes(size int) []byte {
	header := []byte("%PDF-1.4\n")
	if size < len(header) {
		return header
	}
	return append(header, bytes.Repeat([]byte{' '}, size-len(header))...)
}

func testService(t *testing.T) *Service {
	t.Helper()
	require.NoError(t, logger.Init("error", "test"))
	return NewService(config.AttachmentsConfig{
		MaxImageBytes:    4 * 1024 * 1024,
		MaxDocumentBytes: 10 * 1024 * 1024,
		MaxPerRequest:    5,
	}, logger.Get())
}

func TestValidateAcceptsSupportedTypes(t *testing.T) {
	svc := testService(t)

	atts, err := svc.Validate([]Upload{
		{Filename: "map.png", Data: pngBytes(1024)},
		{Filename: "report.pdf", Data: pdfBytes(2048)},
		{Filename: "notes.txt", Data: []byte("graduation rates for Alameda county")},
	})
	require.NoError(t, err)
	require.Len(t, atts, 3)

	assert.Equal(t, KindImage, atts[0].Kind)
	assert.Equal(t, "image/png", atts[0].MIME)
	assert.Equal(t, KindDocument, atts[1].Kind)
	assert.Equal(t, "application/pdf", atts[1].MIME)
	assert.Equal(t, KindDocument, atts[2].Kind)
	assert.Equal(t, "text/plain", atts[2].MIME)
}

func TestValidateRejectsOversizedImage(t *testing.T) {
	svc := testService(t)

	_, err := svc.Validate([]Upload{
		{Filename: "huge.png", Data: pngBytes(4*1024*1024 + 1)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "size limit")
}

func TestValidateDocumentCapLargerThanImageCap(t *testing.T) {
	svc := testService(t)

	// 6 MiB PDF passes the document cap although it exceeds the image cap.
	atts, err := svc.Validate([]Upload{
		{Filename: "big.pdf", Data: pdfBytes(6 * 1024 * 1024)},
	})
	require.NoError(t, err)
	require.Len(t, atts, 1)
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	svc := testService(t)

	// ZIP magic bytes.
	_, err := svc.Validate([]Upload{
		{Filename: "archive.zip", Data: []byte{'P', 'K', 0x03, 0x04, 0, 0, 0, 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestValidateSniffsContentNotFilename(t *testing.T) {
	svc := testService(t)

	// PNG bytes with a misleading filename still classify as an image.
	atts, err := svc.Validate([]Upload{
		{Filename: "actually-an-image.pdf", Data: pngBytes(512)},
	})
	require.NoError(t, err)
	assert.Equal(t, KindImage, atts[0].Kind)
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	svc := testService(t)

	_, err := svc.Validate([]Upload{{Filename: "empty.png", Data: nil}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestValidateRejectsTooMany(t *testing.T) {
	svc := testService(t)

	uploads := make([]Upload, 6)
	for i := range uploads {
		uploads[i] = Upload{Filename: "a.png", Data: pngBytes(64)}
	}
	_, err := svc.Validate(uploads)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestToParts(t *testing.T) {
	atts := []Attachment{{Filename: "a.png", MIME: "image/png", Kind: KindImage, Data: pngBytes(64)}}

	parts := ToParts(atts)
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Len(t, parts[0].InlineData.Data, 64)
}
