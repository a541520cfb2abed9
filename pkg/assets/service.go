package assets

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/curator/pkg/content"
	"github.com/Mindburn-Labs/curator/pkg/document"
	"github.com/Mindburn-Labs/curator/pkg/lifecycle"
	"github.com/Mindburn-Labs/curator/pkg/query"
	"github.com/Mindburn-Labs/curator/pkg/store"
)

// Service is the orchestration layer between the transport and the stores.
// It is stateless per request: all durable state lives in the document
// stores, all payload bytes in the content store.
//
// Concurrent lifecycle actions on the same asset are a read-modify-write
// against the document store and carry a lost-update risk; safety is bounded
// by the store's single-document atomicity, not by this layer.
type Service struct {
	assets      store.Store
	attachments store.Store
	content     content.Store
	machine     *lifecycle.Machine
	validator   *Validator
	summaries   *SummaryCache
	logger      *slog.Logger
	now         func() time.Time
}

// Config wires a Service. Assets, Attachments and Content are required;
// Machine defaults to the standard publication table, Validator and Summaries
// are optional.
type Config struct {
	Assets      store.Store
	Attachments store.Store
	Content     content.Store
	Machine     *lifecycle.Machine
	Validator   *Validator
	Summaries   *SummaryCache
	Logger      *slog.Logger
}

// NewService builds the orchestration layer.
func NewService(cfg Config) *Service {
	machine := cfg.Machine
	if machine == nil {
		machine = lifecycle.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		assets:      cfg.Assets,
		attachments: cfg.Attachments,
		content:     cfg.Content,
		machine:     machine,
		validator:   cfg.Validator,
		summaries:   cfg.Summaries,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns the assets matching the parsed request parameters. Sorting
// happens before pagination; no match yields an empty list, not an error.
func (s *Service) List(ctx context.Context, params *query.Params) ([]document.Document, error) {
	expr, ordering := query.Compile(params.Filters, params.Search, params.Sort)
	docs, err := s.assets.Find(ctx, expr, ordering, params.Fields, params.Page)
	if err != nil {
		return nil, internal("failed to list assets", err)
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}

// Count returns how many assets match, via the store's count path.
func (s *Service) Count(ctx context.Context, filters query.FilterSpec, searchTerm string) (int, error) {
	expr, _ := query.Compile(filters, searchTerm, nil)
	n, err := s.assets.Count(ctx, expr)
	if err != nil {
		return 0, internal("failed to count assets", err)
	}
	return n, nil
}

// Summarize returns, per requested field, the deduplicated values observed
// across all matching assets. The fields list is required.
func (s *Service) Summarize(ctx context.Context, fields []string, filters query.FilterSpec, searchTerm string) ([]FieldSummary, error) {
	if len(fields) == 0 {
		return nil, invalidParamf("summarize requires at least one field")
	}

	expr, _ := query.Compile(filters, searchTerm, nil)
	queryKey := expr.String()

	summaries := make([]FieldSummary, 0, len(fields))
	for _, field := range fields {
		if values, ok := s.summaries.Get(ctx, field, queryKey); ok {
			summaries = append(summaries, FieldSummary{Field: field, Values: values})
			continue
		}
		values, err := s.assets.Distinct(ctx, field, expr)
		if err != nil {
			return nil, internal("failed to summarize assets", err)
		}
		if values == nil {
			values = []any{}
		}
		s.summaries.Set(ctx, field, queryKey, values)
		summaries = append(summaries, FieldSummary{Field: field, Values: values})
	}
	return summaries, nil
}

// Get retrieves one asset by id.
func (s *Service) Get(ctx context.Context, id string) (document.Document, error) {
	doc, err := s.assets.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("asset %s not found", id)
		}
		return nil, internal("failed to load asset", err)
	}
	return doc, nil
}

// Create stores a new asset. The input must not carry an identifier: ids are
// assigned by the store, and the check runs before any store call. A supplied
// id is classified as a state conflict rather than a malformed parameter: the
// document itself is well-formed, it just claims an identity it cannot have
// yet. The returned document is the store's authoritative copy, so the
// assigned id is observable.
func (s *Service) Create(ctx context.Context, doc document.Document, creator string) (document.Document, error) {
	if doc.Has(FieldID) {
		return nil, invalidStatef("a new asset must not carry an id")
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, err
	}

	prepared := doc.Clone()
	prepared.Set(FieldState, string(s.machine.Initial()))
	stampCreated(prepared, s.now(), creator)

	stored, err := s.assets.Insert(ctx, prepared)
	if err != nil {
		return nil, internal("failed to create asset", err)
	}
	s.logger.Info("asset created", "id", stored.GetString(FieldID), "createdBy", creator)
	return stored, nil
}

// Update replaces an existing asset's caller-owned fields. The id, creation
// bookkeeping and, unless the caller explicitly sets it, the lifecycle
// state carry over from the stored copy; lastUpdatedOn is refreshed. State
// changes routed through here instead of ApplyLifecycleAction are not
// validated against the transition table; that is the documented caller
// contract.
func (s *Service) Update(ctx context.Context, id string, doc document.Document) (document.Document, error) {
	existing, err := s.assets.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("asset %s not found", id)
		}
		return nil, internal("failed to load asset", err)
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, err
	}

	updated := doc.Clone()
	updated.Set(FieldID, id)
	updated.Set(FieldCreatedOn, existing.GetString(FieldCreatedOn))
	if createdBy := existing.GetString(FieldCreatedBy); createdBy != "" {
		updated.Set(FieldCreatedBy, createdBy)
	}
	if !updated.Has(FieldState) {
		updated.Set(FieldState, existing.GetString(FieldState))
	}
	updated.Set(FieldLastUpdatedOn, timestamp(s.now()))

	stored, err := s.assets.Replace(ctx, id, updated)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("asset %s not found", id)
		}
		return nil, internal("failed to update asset", err)
	}
	return stored, nil
}

// Delete removes an asset and every attachment referencing it. Attachment
// payloads and documents go first; deleting an asset that is already gone is
// a no-op. A failure after some attachments are gone leaves the repository
// partially cleaned; that degraded state is logged and surfaced, not masked.
func (s *Service) Delete(ctx context.Context, id string) error {
	attachments, err := s.ListAttachments(ctx, id)
	if err != nil {
		return err
	}

	for _, att := range attachments {
		if err := s.deleteAttachmentDoc(ctx, att); err != nil {
			s.logger.Error("asset delete left attachments behind",
				"assetId", id, "attachmentId", att.GetString(FieldID), "error", err)
			return internal("failed to delete attachment during asset delete", err)
		}
	}

	if err := s.assets.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if len(attachments) > 0 {
			s.logger.Error("attachments deleted but asset delete failed", "assetId", id, "error", err)
		}
		return internal("failed to delete asset", err)
	}
	s.logger.Info("asset deleted", "id", id, "attachments", len(attachments))
	return nil
}

// ApplyLifecycleAction validates and applies a named lifecycle action. The
// transition is checked against the current state before anything is
// written; on an illegal action the stored state is untouched and the error
// carries both the action and the state it was attempted from.
func (s *Service) ApplyLifecycleAction(ctx context.Context, rawAction, id string) (document.Document, error) {
	action, err := s.machine.ParseAction(rawAction)
	if err != nil {
		return nil, invalidParamf("unknown lifecycle action %q", rawAction)
	}

	doc, err := s.assets.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("asset %s not found", id)
		}
		return nil, internal("failed to load asset", err)
	}

	current := lifecycle.State(doc.GetString(FieldState))
	next, err := s.machine.Apply(ctx, current, action)
	if err != nil {
		var illegal *lifecycle.IllegalTransitionError
		if errors.As(err, &illegal) {
			return nil, &Error{Kind: KindInvalidState, Msg: illegal.Error(), Err: err}
		}
		return nil, internal("lifecycle transition failed", err)
	}

	doc.Set(FieldState, string(next))
	doc.Set(FieldLastUpdatedOn, timestamp(s.now()))

	stored, err := s.assets.Replace(ctx, id, doc)
	if err != nil {
		return nil, internal("failed to persist lifecycle transition", err)
	}
	s.logger.Info("lifecycle action applied", "id", id, "action", action, "from", current, "to", next)
	return stored, nil
}
