package mysql

import (
	"context"
	"database/sql"
	"time"

	"go-am-realtime-report-ui/internal/query"
)

// RunningTransfer is the live view of a transfer in progress.
type RunningTransfer struct {
	TransferUUID   string
	Name           string
	Stage          string
	Status         string
	StartedAt      *time.Time
	ElapsedSeconds int64
	LastProgressAt *time.Time
	Stuck          bool
}

// RunningSIP is the live view of a SIP in ingest processing.
type RunningSIP struct {
	SIPUUID        string
	Stage          string
	Status         string
	StartedAt      *time.Time
	ElapsedSeconds int64
	LastProgressAt *time.Time
	Stuck          bool
	FailedJobs     int64
	ExecutingJobs  int64
	AwaitingJobs   int64
}

const latestStage = "SUBSTRING_INDEX(GROUP_CONCAT(NULLIF(j.microserviceGroup, '') " +
	"ORDER BY COALESCE(tsk.startTime, j.createdTime) DESC SEPARATOR '||'), '||', 1)"

// RunningTransfersQuery selects transfers with status RUNNING, grouped with
// their jobs and tasks, oldest first.
func (s *Store) RunningTransfersQuery() *query.Select {
	return query.From(s.db, "Transfers t",
		"t.transferUUID",
		"t.currentLocation",
		"COALESCE("+latestStage+", 'Processing') AS stage",
		"MIN(COALESCE(tsk.startTime, j.createdTime)) AS started_at",
		"MAX(COALESCE(tsk.endTime, tsk.startTime, j.createdTime)) AS last_progress_at",
		"MAX(CASE WHEN j.currentStep = 3 THEN 1 ELSE 0 END) AS has_executing_jobs",
	).
		Join("LEFT JOIN Jobs j ON j.SIPUUID = t.transferUUID AND j.unitType LIKE '%Transfer'").
		Join("LEFT JOIN Tasks tsk ON tsk.jobuuid = j.jobUUID").
		Where("t.status = 1").
		GroupBy("t.transferUUID", "t.currentLocation").
		OrderBy("COALESCE(started_at, last_progress_at) ASC").
		OrderBy("t.transferUUID ASC")
}

// ListRunningTransfers runs a query built by RunningTransfersQuery.
func (s *Store) ListRunningTransfers(ctx context.Context, q *query.Select) ([]RunningTransfer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	items := make([]RunningTransfer, 0)
	for rows.Next() {
		var (
			item            RunningTransfer
			currentLocation string
			startedAt       sql.NullTime
			lastProgressAt  sql.NullTime
			hasExecuting    int
		)
		if err := rows.Scan(&item.TransferUUID, &currentLocation, &item.Stage, &startedAt, &lastProgressAt, &hasExecuting); err != nil {
			return nil, err
		}

		item.Name = transferNameFromLocation(currentLocation, item.TransferUUID)
		item.StartedAt = nullTimePtr(startedAt)
		item.LastProgressAt = nullTimePtr(lastProgressAt)
		item.ElapsedSeconds, item.Stuck = s.progress(now, item.StartedAt, item.LastProgressAt)
		item.Status = "RUNNING"
		if hasExecuting == 0 {
			item.Status = "WAITING"
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountRunningTransfers counts a query built by RunningTransfersQuery.
func (s *Store) CountRunningTransfers(ctx context.Context, q *query.Select) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return q.Count(ctx)
}

// RunningSIPsQuery selects SIPs that still have awaiting or executing jobs.
func (s *Store) RunningSIPsQuery() *query.Select {
	return query.From(s.db, "Jobs j",
		"j.SIPUUID",
		"COALESCE("+latestStage+", 'Ingest') AS stage",
		"MIN(COALESCE(tsk.startTime, j.createdTime)) AS started_at",
		"MAX(COALESCE(tsk.endTime, tsk.startTime, j.createdTime)) AS last_progress_at",
		"SUM(CASE WHEN j.currentStep = 4 THEN 1 ELSE 0 END) AS failed_jobs",
		"SUM(CASE WHEN j.currentStep = 3 THEN 1 ELSE 0 END) AS executing_jobs",
		"SUM(CASE WHEN j.currentStep = 1 THEN 1 ELSE 0 END) AS awaiting_jobs",
	).
		Join("LEFT JOIN Tasks tsk ON tsk.jobuuid = j.jobUUID").
		Where("j.unitType LIKE '%SIP'").
		Where("j.SIPUUID IS NOT NULL").
		Where("j.SIPUUID <> ''").
		GroupBy("j.SIPUUID").
		Having("SUM(CASE WHEN j.currentStep IN (1, 3) THEN 1 ELSE 0 END) > 0").
		OrderBy("COALESCE(started_at, last_progress_at) ASC").
		OrderBy("j.SIPUUID ASC")
}

// ListRunningSIPs runs a query built by RunningSIPsQuery.
func (s *Store) ListRunningSIPs(ctx context.Context, q *query.Select) ([]RunningSIP, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	items := make([]RunningSIP, 0)
	for rows.Next() {
		var (
			item           RunningSIP
			startedAt      sql.NullTime
			lastProgressAt sql.NullTime
		)
		if err := rows.Scan(
			&item.SIPUUID,
			&item.Stage,
			&startedAt,
			&lastProgressAt,
			&item.FailedJobs,
			&item.ExecutingJobs,
			&item.AwaitingJobs,
		); err != nil {
			return nil, err
		}

		item.StartedAt = nullTimePtr(startedAt)
		item.LastProgressAt = nullTimePtr(lastProgressAt)
		item.ElapsedSeconds, item.Stuck = s.progress(now, item.StartedAt, item.LastProgressAt)
		item.Status = "WAITING"
		if item.ExecutingJobs > 0 {
			item.Status = "RUNNING"
		}
		if item.FailedJobs > 0 {
			item.Status = "FAILED"
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountRunningSIPs counts a query built by RunningSIPsQuery.
func (s *Store) CountRunningSIPs(ctx context.Context, q *query.Select) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return q.Count(ctx)
}

func (s *Store) progress(now time.Time, startedAt, lastProgressAt *time.Time) (elapsed int64, stuck bool) {
	if startedAt != nil {
		elapsed = int64(now.Sub(*startedAt).Seconds())
	}
	if lastProgressAt != nil {
		stuck = now.Sub(*lastProgressAt) > s.stuckAfter
	}
	return elapsed, stuck
}
