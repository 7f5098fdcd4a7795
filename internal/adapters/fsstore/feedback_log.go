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

// FeedbackLog is an append-only JSON-lines log of entity feedback with
// before/after snapshots.
type FeedbackLog struct {
	mu   sync.Mutex
	path string
}

func NewFeedbackLog(path string) *FeedbackLog {
	return &FeedbackLog{path: path}
}

func (l *FeedbackLog) Append(ctx context.Context, record *models.FeedbackRecord) error {
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

// Prune drops records older than the cutoff, rewriting the file atomically.
func (l *FeedbackLog) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var buf bytes.Buffer
	total, kept := 0, 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record models.FeedbackRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		total++
		if record.Timestamp.Before(olderThan) {
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
		kept++
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return 0, err
	}
	f.Close()

	removed := total - kept
	if removed == 0 {
		return 0, nil
	}
	if err := writeFileAtomic(l.path, buf.Bytes()); err != nil {
		return 0, err
	}
	return removed, nil
}
