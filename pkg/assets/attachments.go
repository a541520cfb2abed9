package assets

import (
	"context"
	"errors"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/query"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

// CreateAttachment stores an attachment for an existing asset. Exactly one
// mode applies: a non-nil payload stores inline content (reference, size and
// checksum are recorded on the document), a nil payload requires an external
// url plus linkType. Mode conflicts are rejected before anything is written.
func (s *Service) CreateAttachment(ctx context.Context, assetID string, meta document.Document, payload []byte) (document.Document, error) {
	if meta.Has(FieldID) {
		return nil, invalidStatef("a new attachment must not carry an id")
	}
	if err := validateAttachmentMode(meta, payload); err != nil {
		return nil, err
	}

	if _, err := s.assets.FindOne(ctx, assetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("asset %s not found", assetID)
		}
		return nil, internal("failed to load asset", err)
	}

	prepared := meta.Clone()
	prepared.Set(FieldAssetID, assetID)
	stampCreated(prepared, s.now(), "")

	if payload != nil {
		ref, err := s.content.Put(ctx, payload)
		if err != nil {
			return nil, internal("failed to store attachment content", err)
		}
		prepared.Set(FieldContentRef, ref.Key)
		prepared.Set(FieldSize, float64(ref.Size))
		prepared.Set(FieldChecksum, ref.Checksum)
	}

	stored, err := s.attachments.Insert(ctx, prepared)
	if err != nil {
		return nil, internal("failed to create attachment", err)
	}
	s.logger.Info("attachment created",
		"id", stored.GetString(FieldID), "assetId", assetID, "inline", payload != nil)
	return stored, nil
}

// GetAttachment retrieves one attachment document by id.
func (s *Service) GetAttachment(ctx context.Context, id string) (document.Document, error) {
	doc, err := s.attachments.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("attachment %s not found", id)
		}
		return nil, internal("failed to load attachment", err)
	}
	return doc, nil
}

// ListAttachments returns every attachment referencing an asset.
func (s *Service) ListAttachments(ctx context.Context, assetID string) ([]document.Document, error) {
	expr := query.Compare{Field: FieldAssetID, Op: query.Equals, Value: assetID}
	docs, err := s.attachments.Find(ctx, expr, query.Sort{}, nil, nil)
	if err != nil {
		return nil, internal("failed to list attachments", err)
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}

// DeleteAttachment removes an attachment and its inline content. Deleting an
// attachment that is already gone is a no-op.
func (s *Service) DeleteAttachment(ctx context.Context, id string) error {
	doc, err := s.attachments.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return internal("failed to load attachment", err)
	}
	return s.deleteAttachmentDoc(ctx, doc)
}

// AttachmentContent returns the payload bytes of an inline attachment.
func (s *Service) AttachmentContent(ctx context.Context, id string) ([]byte, error) {
	doc, err := s.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := doc.GetString(FieldContentRef)
	if ref == "" {
		return nil, invalidStatef("attachment %s has no inline content", id)
	}
	data, err := s.content.Get(ctx, ref)
	if err != nil {
		return nil, internal("failed to read attachment content", err)
	}
	return data, nil
}

// deleteAttachmentDoc removes an attachment document plus its content blob.
// Content is addressed by digest, so identical payloads on different
// attachments share one blob; the blob goes only when this is the last
// document referencing it. Content deletion is idempotent, so retrying after
// a partial failure is safe.
func (s *Service) deleteAttachmentDoc(ctx context.Context, doc document.Document) error {
	if ref := doc.GetString(FieldContentRef); ref != "" {
		shared, err := s.contentShared(ctx, ref)
		if err != nil {
			return err
		}
		if !shared {
			if err := s.content.Delete(ctx, ref); err != nil {
				return internal("failed to delete attachment content", err)
			}
		}
	}
	if err := s.attachments.Delete(ctx, doc.GetString(FieldID)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return internal("failed to delete attachment", err)
	}
	return nil
}

// contentShared reports whether more than one attachment document references
// a content blob.
func (s *Service) contentShared(ctx context.Context, ref string) (bool, error) {
	n, err := s.attachments.Count(ctx,
		query.Compare{Field: FieldContentRef, Op: query.Equals, Value: ref})
	if err != nil {
		return false, internal("failed to count content references", err)
	}
	return n > 1, nil
}

// validateAttachmentMode enforces the inline/external exclusivity rule.
func validateAttachmentMode(meta document.Document, payload []byte) error {
	hasURL := meta.GetString(FieldURL) != ""
	hasLinkType := meta.GetString(FieldLinkType) != ""
	if meta.Has(FieldContentRef) || meta.Has(FieldSize) || meta.Has(FieldChecksum) {
		return invalidStatef("content reference fields are assigned by the service")
	}

	if payload != nil {
		if hasURL || hasLinkType {
			return invalidStatef("an attachment has either inline content or an external url, not both")
		}
		return nil
	}
	if !hasURL || !hasLinkType {
		return invalidStatef("an attachment without content requires url and linkType")
	}
	return nil
}
