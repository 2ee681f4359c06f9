package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pcprep/pcprep-api/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

var csvHeader = []string{"Path", "Parent", "Item", "Quantity", "Status", "Verifier", "Verified at"}

// Row is one item line of an event report.
type Row struct {
	Path       string
	Parent     string
	Item       string
	Quantity   string
	Status     domain.VerificationStatus
	Verifier   string
	VerifiedAt string
}

// Rows flattens the items of an event tree in display order.
func Rows(tree domain.EventTree, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}

	var rows []Row
	tree.Walk(func(n *domain.TreeNode, ancestors []*domain.TreeNode) bool {
		if n.IsGroup() {
			return true
		}

		row := Row{
			Item:     n.Name,
			Status:   n.Status,
			Verifier: n.LastBy,
		}
		if row.Status == "" {
			row.Status = domain.StatusPending
		}

		names := make([]string, 0, len(ancestors))
		for _, a := range ancestors {
			names = append(names, a.Name)
		}
		row.Path = strings.Join(names, " / ")
		if len(ancestors) > 0 {
			row.Parent = ancestors[len(ancestors)-1].Name
		}

		if n.Quantity != nil {
			row.Quantity = strconv.Itoa(*n.Quantity)
		}
		if n.LastAt != nil {
			row.VerifiedAt = n.LastAt.In(loc).Format(timeLayout)
		}

		rows = append(rows, row)
		return true
	})

	return rows
}

// WriteCSV writes one line per item of the event tree.
func WriteCSV(w io.Writer, tree domain.EventTree, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("cw.Write header -> %w", err)
	}

	for _, r := range Rows(tree, loc) {
		record := []string{r.Path, r.Parent, r.Item, r.Quantity, string(r.Status), r.Verifier, r.VerifiedAt}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cw.Write -> %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cw.Flush -> %w", err)
	}

	return nil
}

var logsHeader = []string{"At", "Actor", "Action", "Details"}

// WriteLogsCSV writes one line per log entry, in the given order.
func WriteLogsCSV(w io.Writer, entries []domain.AuditEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(logsHeader); err != nil {
		return fmt.Errorf("cw.Write header -> %w", err)
	}

	for _, e := range entries {
		record := []string{e.CreatedAt.In(loc).Format(timeLayout), e.Actor, e.Action, e.Details}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("cw.Write -> %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cw.Flush -> %w", err)
	}

	return nil
}

// LogsFilename is the download name of the log export of an event.
func LogsFilename(event domain.Event) string {
	return fmt.Sprintf("event-%d-logs.csv", event.ID)
}

// Filename is the download name of a report for the given event.
func Filename(event domain.Event, ext string) string {
	return fmt.Sprintf("event-%d-%s.%s", event.ID, event.Date.Format("2006-01-02"), ext)
}
