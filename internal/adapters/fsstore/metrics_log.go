package fsstore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// MetricsLog is an append-only JSON-lines usage log. Appends serialize
// through a mutex; Prune rewrites the whole file atomically.
type MetricsLog struct {
	mu   sync.Mutex
	path string
}

func NewMetricsLog(path string) *MetricsLog {
	return &MetricsLog{path: path}
}

func (l *MetricsLog) Append(ctx context.Context, record *models.UsageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), dirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(line)
	return err
}

func (l *MetricsLog) Summary(ctx context.Context) (*models.UsageSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &models.UsageSummary{
		ByOperation:  make(map[string]int),
		ByEntityType: make(map[string]*models.EntityTypeStats),
	}

	records, err := l.readAll()
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		summary.TotalRecords++
		summary.ByOperation[record.OperationType]++
		if summary.OldestRecord == nil || record.Timestamp.Before(*summary.OldestRecord) {
			ts := record.Timestamp
			summary.OldestRecord = &ts
		}

		entityType, ok := record.Details["entityType"].(string)
		if !ok || entityType == "" {
			continue
		}
		stats := summary.ByEntityType[entityType]
		if stats == nil {
			stats = &models.EntityTypeStats{}
			summary.ByEntityType[entityType] = stats
		}
		stats.TotalUses++
		if record.WasHelpful != nil && *record.WasHelpful {
			stats.HelpfulUses++
		}
	}

	return summary, nil
}

func (l *MetricsLog) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAllLocked()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	kept := 0
	for _, record := range records {
		if record.Timestamp.Before(olderThan) {
			continue
		}
		line, err := json.Marshal(record)
		if err != nil {
			return 0, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		kept++
	}

	removed := len(records) - kept
	if removed == 0 {
		return 0, nil
	}
	if err := writeFileAtomic(l.path, buf.Bytes()); err != nil {
		return 0, err
	}
	return removed, nil
}

func (l *MetricsLog) readAll() ([]*models.UsageRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked()
}

// readAllLocked must be called with l.mu held. Unparseable lines are
// skipped rather than failing the whole scan.
func (l *MetricsLog) readAllLocked() ([]*models.UsageRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []*models.UsageRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record models.UsageRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, scanner.Err()
}
