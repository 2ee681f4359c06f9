package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/juju/clock"

	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	periodicHistoryLimit = 50
	maxCommentLength     = 1000
)

type PeriodicStockReader interface {
	FindByID(ctx context.Context, id uint) (domain.StockNode, error)
	FindRoots(ctx context.Context) ([]domain.StockNode, error)
	FindSubtrees(ctx context.Context, rootIDs []uint) ([]domain.StockNode, error)
	FindExpiries(ctx context.Context, nodeIDs []uint) (map[uint][]domain.ItemExpiry, error)
}

type PeriodicLedger interface {
	Append(ctx context.Context, rec domain.PeriodicRecord) (domain.PeriodicRecord, error)
	AppendMany(ctx context.Context, records []domain.PeriodicRecord) error
	LatestByNode(ctx context.Context, nodeIDs []uint) (map[uint]domain.PeriodicRecord, error)
	Recent(ctx context.Context, nodeIDs []uint, limit int) ([]domain.PeriodicRecord, error)
	Replace(ctx context.Context, req repository.ReplaceRequest) (domain.Replacement, error)
}

type ReassortOptionsReader interface {
	Options(ctx context.Context, nodeID uint) ([]domain.ReassortOption, error)
}

// PeriodicService runs the stock checks done between events. Its ledger is
// keyed by item only and is reset per stock root.
type PeriodicService struct {
	stock    PeriodicStockReader
	ledger   PeriodicLedger
	reassort ReassortOptionsReader
	audit    AuditRecorder
	clock    clock.Clock
}

func NewPeriodicService(stock PeriodicStockReader, ledger PeriodicLedger, reassort ReassortOptionsReader, audit AuditRecorder, clk clock.Clock) *PeriodicService {
	return &PeriodicService{
		stock:    stock,
		ledger:   ledger,
		reassort: reassort,
		audit:    audit,
		clock:    clk,
	}
}

// Roots lists every stock root with the progress of its periodic check.
func (s *PeriodicService) Roots(ctx context.Context) ([]domain.PeriodicRootSummary, error) {
	roots, err := s.stock.FindRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.stock.FindRoots -> %w", err)
	}
	domain.SortNodes(roots)
	if len(roots) == 0 {
		return []domain.PeriodicRootSummary{}, nil
	}

	rootIDs := make([]uint, 0, len(roots))
	for _, r := range roots {
		rootIDs = append(rootIDs, r.ID)
	}
	nodes, err := s.stock.FindSubtrees(ctx, rootIDs)
	if err != nil {
		return nil, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
	}
	latest, err := s.ledger.LatestByNode(ctx, domain.ItemIDs(nodes))
	if err != nil {
		return nil, fmt.Errorf("s.ledger.LatestByNode -> %w", err)
	}

	out := make([]domain.PeriodicRootSummary, 0, len(roots))
	for _, r := range roots {
		tree := domain.BuildPeriodicTree(r, nodes, latest, nil)
		out = append(out, domain.PeriodicRootSummary{ID: r.ID, Name: r.Name, Stats: tree.Stats})
	}

	return out, nil
}

// Tree returns the periodic check tree of the stock root holding nodeID.
func (s *PeriodicService) Tree(ctx context.Context, nodeID uint) (domain.PeriodicTree, error) {
	root, err := s.rootOf(ctx, nodeID)
	if err != nil {
		return domain.PeriodicTree{}, err
	}

	nodes, err := s.stock.FindSubtrees(ctx, []uint{root.ID})
	if err != nil {
		return domain.PeriodicTree{}, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
	}
	itemIDs := domain.ItemIDs(nodes)

	latest, err := s.ledger.LatestByNode(ctx, itemIDs)
	if err != nil {
		return domain.PeriodicTree{}, fmt.Errorf("s.ledger.LatestByNode -> %w", err)
	}
	expiries, err := s.stock.FindExpiries(ctx, itemIDs)
	if err != nil {
		return domain.PeriodicTree{}, fmt.Errorf("s.stock.FindExpiries -> %w", err)
	}

	return domain.BuildPeriodicTree(root, nodes, latest, expiries), nil
}

// History returns the newest periodic records of the items under rootID.
func (s *PeriodicService) History(ctx context.Context, rootID uint) ([]domain.PeriodicHistoryEntry, error) {
	nodes, err := s.stock.FindSubtrees(ctx, []uint{rootID})
	if err != nil {
		return nil, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrNodeNotFound
	}

	names := make(map[uint]string, len(nodes))
	for _, n := range nodes {
		names[n.ID] = n.Name
	}

	records, err := s.ledger.Recent(ctx, domain.ItemIDs(nodes), periodicHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("s.ledger.Recent -> %w", err)
	}

	out := make([]domain.PeriodicHistoryEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, domain.PeriodicHistoryEntry{PeriodicRecord: rec, NodeName: names[rec.NodeID]})
	}

	return out, nil
}

// Verify appends the periodic check of one item. Quantities are clamped to
// zero and the issue code is kept for NOT_OK checks only.
func (s *PeriodicService) Verify(ctx context.Context, actor domain.User, nodeID uint, check domain.PeriodicCheck) (domain.PeriodicRecord, error) {
	if !check.Status.Valid() {
		return domain.PeriodicRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, check.Status)
	}
	if check.IssueCode != "" && !check.IssueCode.Valid() {
		return domain.PeriodicRecord{}, fmt.Errorf("%w: unknown issue code %q", ErrInvalidInput, check.IssueCode)
	}
	comment := strings.TrimSpace(check.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return domain.PeriodicRecord{}, fmt.Errorf("%w: comment is longer than %d characters", ErrInvalidInput, maxCommentLength)
	}

	node, err := s.item(ctx, nodeID)
	if err != nil {
		return domain.PeriodicRecord{}, err
	}

	rec := s.newRecord(actor, node.ID, check.Status)
	rec.Comment = comment
	rec.ObservedQty = clampQty(check.ObservedQty)
	rec.MissingQty = clampQty(check.MissingQty)
	if check.Status == domain.PeriodicNotOK {
		rec.IssueCode = check.IssueCode
	}

	created, err := s.ledger.Append(ctx, rec)
	if err != nil {
		return domain.PeriodicRecord{}, fmt.Errorf("s.ledger.Append -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditPeriodicCheck)
	entry.Details = fmt.Sprintf("%s: %s", node.Name, created.Status)
	recordAudit(ctx, s.audit, entry)

	return created, nil
}

// Reset puts every item under rootID back to TODO and returns how many items
// changed. Items already TODO get no new record.
func (s *PeriodicService) Reset(ctx context.Context, actor domain.User, rootID uint) (int, error) {
	nodes, err := s.stock.FindSubtrees(ctx, []uint{rootID})
	if err != nil {
		return 0, fmt.Errorf("s.stock.FindSubtrees -> %w", err)
	}
	if len(nodes) == 0 {
		return 0, ErrNodeNotFound
	}

	itemIDs := domain.ItemIDs(nodes)
	latest, err := s.ledger.LatestByNode(ctx, itemIDs)
	if err != nil {
		return 0, fmt.Errorf("s.ledger.LatestByNode -> %w", err)
	}

	var records []domain.PeriodicRecord
	for _, id := range itemIDs {
		if rec, ok := latest[id]; ok && rec.Status != domain.PeriodicTodo {
			records = append(records, s.newRecord(actor, id, domain.PeriodicTodo))
		}
	}
	if err := s.ledger.AppendMany(ctx, records); err != nil {
		return 0, fmt.Errorf("s.ledger.AppendMany -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditPeriodicReset)
	entry.Details = fmt.Sprintf("#%d (%d items)", rootID, len(records))
	recordAudit(ctx, s.audit, entry)

	return len(records), nil
}

// ReassortOptions lists the restocking batches that can refill an item.
func (s *PeriodicService) ReassortOptions(ctx context.Context, nodeID uint) ([]domain.ReassortOption, error) {
	if _, err := s.item(ctx, nodeID); err != nil {
		return nil, err
	}

	options, err := s.reassort.Options(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("s.reassort.Options -> %w", err)
	}

	return options, nil
}

// Replace refills an item from a restocking batch and records the item OK.
func (s *PeriodicService) Replace(ctx context.Context, actor domain.User, nodeID uint, in domain.ReplaceInput) (domain.Replacement, error) {
	if in.Quantity < 1 {
		return domain.Replacement{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	node, err := s.item(ctx, nodeID)
	if err != nil {
		return domain.Replacement{}, err
	}

	req := repository.ReplaceRequest{
		NodeID:     node.ID,
		BatchID:    in.BatchID,
		Quantity:   in.Quantity,
		ExpiryID:   in.ExpiryID,
		ExpiryDate: in.ExpiryDate,
		Record:     s.newRecord(actor, node.ID, domain.PeriodicOK),
	}
	extra := strings.TrimSpace(in.Comment)
	req.Describe = func(r domain.Replacement, itemName, lot string) string {
		return replaceComment(r, itemName, lot, extra)
	}

	out, err := s.ledger.Replace(ctx, req)
	if err != nil {
		return domain.Replacement{}, fmt.Errorf("s.ledger.Replace -> %w", err)
	}

	entry := actorEntry(actor, domain.AuditReplaced)
	entry.Details = fmt.Sprintf("%s: %d from batch #%d", node.Name, out.Quantity, out.BatchID)
	recordAudit(ctx, s.audit, entry)

	return out, nil
}

func replaceComment(r domain.Replacement, itemName, lot, extra string) string {
	parts := []string{"Remplacement via réassort", "Article: " + itemName}
	if lot != "" {
		parts = append(parts, "Lot réassort: "+lot)
	}
	if r.RemovedExpiry != nil {
		parts = append(parts, "Lot retiré: "+r.RemovedExpiry.Format(dateLayout))
	}
	if r.NewExpiry != nil {
		parts = append(parts, "Nouvelle exp.: "+r.NewExpiry.Format(dateLayout))
	}
	parts = append(parts, fmt.Sprintf("Quantité: %d", r.Quantity))
	if extra != "" {
		parts = append(parts, extra)
	}

	return strings.Join(parts, " | ")
}

func (s *PeriodicService) newRecord(actor domain.User, nodeID uint, status domain.PeriodicStatus) domain.PeriodicRecord {
	rec := domain.PeriodicRecord{
		NodeID:       nodeID,
		Status:       status,
		VerifierName: actor.Username,
		CreatedAt:    s.clock.Now(),
	}
	if actor.ID != 0 {
		id := actor.ID
		rec.VerifierID = &id
	}

	return rec
}

func (s *PeriodicService) item(ctx context.Context, nodeID uint) (domain.StockNode, error) {
	node, err := s.stock.FindByID(ctx, nodeID)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.stock.FindByID -> %w", err)
	}
	if node.IsGroup() {
		return domain.StockNode{}, ErrNotAnItem
	}

	return node, nil
}

// rootOf climbs from nodeID to its stock root.
func (s *PeriodicService) rootOf(ctx context.Context, nodeID uint) (domain.StockNode, error) {
	node, err := s.stock.FindByID(ctx, nodeID)
	if err != nil {
		return domain.StockNode{}, fmt.Errorf("s.stock.FindByID -> %w", err)
	}

	for depth := 0; node.ParentID != nil && depth < domain.MaxLevel; depth++ {
		node, err = s.stock.FindByID(ctx, *node.ParentID)
		if err != nil {
			return domain.StockNode{}, fmt.Errorf("s.stock.FindByID -> %w", err)
		}
	}

	return node, nil
}

func clampQty(v *int) *int {
	if v == nil {
		return nil
	}

	n := max(*v, 0)
	return &n
}
