package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go-am-realtime-report-ui/internal/query"
)

// CompletedTransfer is a finished transfer row for dashboard browsing.
type CompletedTransfer struct {
	TransferUUID        string
	Name                string
	StatusCode          int
	Status              string
	SourceOfAcquisition string
	CompletedAt         *time.Time
}

// CompletedTransfersQuery selects completed transfers, newest first. Callers
// page, filter and search it; the returned query is meant for
// ListCompletedTransfers.
func (s *Store) CompletedTransfersQuery() *query.Select {
	return query.From(s.db, "Transfers t",
		"t.transferUUID",
		"t.currentLocation",
		"t.status",
		"COALESCE(t.sourceOfAcquisition, '')",
		"t.completed_at",
	).
		Where("t.status IN (2, 3, 4)").
		Where("t.completed_at IS NOT NULL").
		OrderBy("t.completed_at DESC")
}

// ListCompletedTransfers runs a query built by CompletedTransfersQuery.
func (s *Store) ListCompletedTransfers(ctx context.Context, q *query.Select) ([]CompletedTransfer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CompletedTransfer, 0)
	for rows.Next() {
		var (
			item            CompletedTransfer
			currentLocation string
			completedAt     sql.NullTime
		)
		if err := rows.Scan(
			&item.TransferUUID,
			&currentLocation,
			&item.StatusCode,
			&item.SourceOfAcquisition,
			&completedAt,
		); err != nil {
			return nil, err
		}

		item.Name = transferNameFromLocation(currentLocation, item.TransferUUID)
		item.Status = transferStatusName(item.StatusCode)
		item.CompletedAt = nullTimePtr(completedAt)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountCompletedTransfers counts a query built by CompletedTransfersQuery.
func (s *Store) CountCompletedTransfers(ctx context.Context, q *query.Select) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return q.Count(ctx)
}

// TransferStatusCode maps a status name back to its MCP code, or -1.
func TransferStatusCode(name string) int {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RUNNING":
		return 1
	case "SUCCESS":
		return 2
	case "SUCCESS_WITH_WARNINGS":
		return 3
	case "FAILED":
		return 4
	default:
		return -1
	}
}

func transferStatusName(code int) string {
	switch code {
	case 1:
		return "RUNNING"
	case 2:
		return "SUCCESS"
	case 3:
		return "SUCCESS_WITH_WARNINGS"
	case 4:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func transferNameFromLocation(currentLocation, transferUUID string) string {
	parts := strings.Split(strings.Trim(currentLocation, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		candidate := sanitizeLocationSegment(parts[i], transferUUID)
		if candidate != "" {
			return candidate
		}
	}
	return transferUUID
}

func sanitizeLocationSegment(segment, transferUUID string) string {
	segment = strings.TrimSpace(strings.Trim(segment, "/"))
	if segment == "" {
		return ""
	}
	lower := strings.ToLower(segment)
	transferLower := strings.ToLower(strings.TrimSpace(transferUUID))

	// Ignore AM path placeholders and generic processing buckets.
	if strings.Contains(segment, "%") {
		return ""
	}
	if strings.Contains(lower, "currentlyprocessing") ||
		strings.Contains(lower, "watchdirectory") ||
		strings.Contains(lower, "sharedpath") ||
		strings.Contains(lower, "completed") ||
		strings.Contains(lower, "processing") {
		return ""
	}

	// Remove UUID suffix from transfer directory names.
	if transferLower != "" {
		suffix := "-" + transferLower
		if strings.HasSuffix(lower, suffix) {
			segment = segment[:len(segment)-len(suffix)]
		}
	}
	segment = strings.TrimSpace(segment)
	if segment == "" || strings.EqualFold(segment, transferUUID) {
		return ""
	}
	return segment
}
