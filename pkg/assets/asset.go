package assets

import (
	"time"

	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

// Bookkeeping fields the service owns. Everything else in an asset document
// belongs to the caller.
const (
	FieldID            = store.IDField
	FieldState         = "state"
	FieldCreatedOn     = "createdOn"
	FieldLastUpdatedOn = "lastUpdatedOn"
	FieldCreatedBy     = "createdBy"

	// Attachment fields. FieldAssetID is the back-reference to the owning
	// asset. It is a reference, not an ownership pointer; attachments are
	// deleted explicitly.
	FieldAssetID    = "assetId"
	FieldContentRef = "contentRef"
	FieldSize       = "size"
	FieldChecksum   = "checksum"
	FieldURL        = "url"
	FieldLinkType   = "linkType"
)

// FieldSummary is one entry of a summarize response: a field and the distinct
// values observed for it across all matching assets.
type FieldSummary struct {
	Field  string `json:"field"`
	Values []any  `json:"values"`
}

// timestamp renders service-set times: ISO-8601, UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// stampCreated sets the creation bookkeeping on a new document.
func stampCreated(doc document.Document, now time.Time, creator string) {
	ts := timestamp(now)
	doc.Set(FieldCreatedOn, ts)
	doc.Set(FieldLastUpdatedOn, ts)
	if creator != "" {
		doc.Set(FieldCreatedBy, creator)
	}
}
