package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"invoicedesk/internal/domain"
)

// contentTypes is the fixed extension lookup for attachment typing.
var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".txt":  "text/plain",
	".csv":  "text/csv",
}

const defaultContentType = "application/octet-stream"

func contentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return defaultContentType
}

// AttachmentAssembler fetches and types invoice files for a send.
type AttachmentAssembler struct {
	files domain.FileStore
}

func NewAttachmentAssembler(files domain.FileStore) *AttachmentAssembler {
	return &AttachmentAssembler{files: files}
}

// Assemble selects the invoice's files for the recipient and fetches them
// concurrently. Invoice files always go to the client; timesheets go to the
// client only when the client requires them, and never to the accountant.
// Any failed fetch fails the whole assembly; there is no partial result.
func (a *AttachmentAssembler) Assemble(ctx context.Context, inv *domain.Invoice, client *domain.Client, recipient domain.RecipientType) ([]domain.Attachment, error) {
	var selected []domain.InvoiceFile
	for _, f := range inv.Files {
		switch f.Type {
		case domain.FileTypeTimesheet:
			if recipient == domain.RecipientClient && client.RequiresTimesheet {
				selected = append(selected, f)
			}
		default:
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	attachments := make([]domain.Attachment, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range selected {
		g.Go(func() error {
			content, err := a.files.Fetch(gctx, f.Key)
			if err != nil {
				return fmt.Errorf("assemble attachment %s: %w", f.Name, err)
			}
			attachments[i] = domain.Attachment{
				Filename:    f.Name,
				Content:     content,
				ContentType: contentTypeFor(f.Name),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}
