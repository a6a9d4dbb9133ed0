package pipeline

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"orderintake/internal"
	"orderintake/internal/catalog"
	"orderintake/internal/config"
	"orderintake/internal/storage"
)

// IntakeService runs the extract → match → validate pipeline for one email
// or one pre-extracted item list. Every call resolves the catalog snapshot
// exactly once and threads it through matching, validation and merging.
type IntakeService struct {
	cfg   config.Config
	store *catalog.Store
}

func NewIntakeService(cfg config.Config, store *catalog.Store) *IntakeService {
	return &IntakeService{cfg: cfg, store: store}
}

// ParseEmail turns a raw email into a fully validated Order.
func (s *IntakeService) ParseEmail(raw []byte) (internal.Order, error) {
	extracted, err := ExtractEmail(raw, time.Now())
	if err != nil {
		return internal.Order{}, err
	}
	return s.assemble(extracted.Items, extracted.Details), nil
}

// ValidateItems validates already-extracted items against the current
// catalog, without any email header metadata.
func (s *IntakeService) ValidateItems(items []internal.CandidateItem) internal.Order {
	return s.assemble(items, internal.OrderDetails{Urgency: internal.UrgencyNormal})
}

// MergeOrders consolidates several parsed orders against the current
// catalog snapshot.
func (s *IntakeService) MergeOrders(orders []internal.Order) (internal.Order, error) {
	return Merge(orders, s.store.Snapshot())
}

func (s *IntakeService) assemble(items []internal.CandidateItem, details internal.OrderDetails) internal.Order {
	snap := s.store.Snapshot()
	matcher := NewMatcher(s.cfg, snap)

	order := internal.Order{
		ID:              uuid.NewString(),
		DeliveryDate:    details.DeliveryDate,
		ShippingAddress: details.ShippingAddress,
		CustomerName:    details.CustomerName,
		Notes:           details.Notes,
		Urgency:         details.Urgency,
	}
	if order.Urgency == "" {
		order.Urgency = internal.UrgencyNormal
	}

	for _, ni := range NormalizeItems(items) {
		order.Items = append(order.Items, Validate(matcher.Match(ni), snap))
	}

	FinalizeOrder(&order)
	return order
}

// ProcessingService drives stored emails through the intake pipeline and
// persists the resulting orders.
type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	intake *IntakeService
}

func NewProcessingService(db *storage.DB, cfg config.Config, intake *IntakeService) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, intake: intake}
}

type ProcessResult struct {
	EmailID int
	OrderID string
	Lines   int
	Skipped bool
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(email)
}

// ProcessPending processes up to limit fetched emails, optionally filtered
// by provider. Returns emails processed and total lines extracted.
func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", provider, limit)
	if err != nil {
		return 0, 0, err
	}

	processedEmails := 0
	processedLines := 0
	for _, email := range pending {
		res, err := s.ProcessEmail(email)
		if err != nil {
			return processedEmails, processedLines, err
		}
		if !res.Skipped {
			processedEmails++
			processedLines += res.Lines
		}
	}
	return processedEmails, processedLines, nil
}

func (s *ProcessingService) ProcessEmail(email internal.EmailRow) (ProcessResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	extracted, err := ExtractEmail(raw, time.Now())
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectOrderRequest(
		firstNonEmpty(extracted.Subject, email.Subject),
		extracted.BodyText,
		extracted.BodyHTML,
		extracted.AttachmentNames,
	)

	if err := s.db.ClearEmailOrders(email.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsOrder {
		_ = s.db.UpdateEmailStatus(email.ID, "skipped")
		return ProcessResult{EmailID: email.ID, Skipped: true}, nil
	}

	order := s.intake.assemble(extracted.Items, extracted.Details)
	if err := s.db.InsertOrder(order, &email.ID); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}

	return ProcessResult{EmailID: email.ID, OrderID: order.ID, Lines: len(order.Items)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
