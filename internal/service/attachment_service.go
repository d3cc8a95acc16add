package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// AttachmentService validates and stores uploaded binary objects. File type
// is decided by content signature, never by the client-supplied name.
type AttachmentService struct {
	store       *store.Store
	uploadDir   string
	maxFileSize int64
	logger      *zap.Logger
}

// NewAttachmentService constructs the service.
func NewAttachmentService(s *store.Store, uploadDir string, maxFileSize int64, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{store: s, uploadDir: uploadDir, maxFileSize: maxFileSize, logger: logger}
}

// sniffMIME detects common types by magic number. Unknown content is
// rejected upstream.
func sniffMIME(data []byte) string {
	switch {
	case len(data) == 0:
		return ""
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return "application/pdf"
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")):
		return "video/mp4"
	}
	return ""
}

var dangerousExtensions = []string{
	".exe", ".bat", ".cmd", ".js", ".vbs", ".scr", ".com", ".dll", ".msi",
}

// hasDangerousDoubleExtension detects names like "report.pdf.exe".
func hasDangerousDoubleExtension(filename string) bool {
	name := strings.ToLower(filename)
	name = name[strings.LastIndexByte(strings.ReplaceAll(name, "\\", "/"), '/')+1:]
	for _, ext := range dangerousExtensions {
		if strings.HasSuffix(name, ext) && strings.Count(name, ".") >= 2 {
			return true
		}
	}
	return false
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename returns a filesystem-safe name preserving basic characters.
func sanitizeFilename(filename string) string {
	base := filename
	base = base[strings.LastIndexByte(strings.ReplaceAll(base, "\\", "/"), '/')+1:]
	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "file"
	}
	return base
}

// Attach validates the content and stores it on disk plus in the entity
// store. replyID associates the attachment with a specific response.
func (s *AttachmentService) Attach(ctx context.Context, complaintID int64, replyID *int64, fileName string, data []byte) (domain.Attachment, error) {
	if int64(len(data)) > s.maxFileSize {
		return domain.Attachment{}, apperrors.NewValidationError("file exceeds size limit", map[string]any{"size": len(data)})
	}
	if fileName == "" {
		fileName = "attachment"
	}
	if hasDangerousDoubleExtension(fileName) {
		return domain.Attachment{}, apperrors.NewValidationError("dangerous file name detected", map[string]any{"file_name": fileName})
	}
	contentType := sniffMIME(data)
	if contentType == "" {
		return domain.Attachment{}, apperrors.NewValidationError("unsupported or invalid file content", nil)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return domain.Attachment{}, err
	}
	safeName := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(fileName))
	destination := filepath.Join(s.uploadDir, safeName)
	if err := os.WriteFile(destination, data, 0o644); err != nil {
		return domain.Attachment{}, err
	}

	attachment, err := s.store.CreateAttachment(store.CreateAttachmentInput{
		ComplaintID: complaintID,
		ReplyID:     replyID,
		FileName:    fileName,
		FilePath:    destination,
		FileType:    contentType,
		FileSize:    int64(len(data)),
	})
	if err != nil {
		// Orphaned file on validation failure; remove it.
		_ = os.Remove(destination)
		return domain.Attachment{}, err
	}
	return attachment, nil
}

// ListForComplaint returns the attachments recorded against a complaint.
func (s *AttachmentService) ListForComplaint(ctx context.Context, complaintID int64) ([]domain.Attachment, error) {
	if _, ok := s.store.GetComplaint(complaintID); !ok {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
	}
	return s.store.ListAttachmentsForComplaint(complaintID), nil
}

// Get returns one attachment descriptor.
func (s *AttachmentService) Get(ctx context.Context, id int64) (domain.Attachment, error) {
	attachment, ok := s.store.GetAttachment(id)
	if !ok {
		return domain.Attachment{}, apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
	}
	return attachment, nil
}

// Delete removes the descriptor and, best effort, the on-disk file.
func (s *AttachmentService) Delete(ctx context.Context, id int64, actorID int64) error {
	attachment, ok := s.store.GetAttachment(id)
	if !ok {
		return apperrors.NewNotFound("attachment", map[string]any{"attachment_id": id})
	}
	if err := s.store.DeleteAttachment(id); err != nil {
		return err
	}
	if err := os.Remove(attachment.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("attachment file removal failed",
			zap.String("path", attachment.FilePath), zap.Error(err))
	}
	s.store.LogAction(store.LogActionInput{
		UserID:     actorID,
		Action:     "attachment_deleted",
		EntityType: "attachment",
		EntityID:   &id,
	})
	return nil
}
