package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Sink receives finished reports.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report *Report) error
}

// WriterSink prints the human readable report to a writer, usually stdout.
type WriterSink struct {
	mutex  sync.Mutex
	writer io.Writer
}

func NewWriterSink(writer io.Writer) *WriterSink {
	return &WriterSink{
		writer: writer,
	}
}

func (s *WriterSink) Name() string {
	return "writer"
}

func (s *WriterSink) Publish(ctx context.Context, report *Report) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := io.WriteString(s.writer, FormatReport(report))
	return err
}

// DashboardCache is the key value store behind DashboardSink.
type DashboardCache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	PushRecent(ctx context.Context, key string, value string, limit int64) error
}

// DashboardSink stores the latest report per hash and a bounded list of recent hashes.
type DashboardSink struct {
	cache       DashboardCache
	ttl         time.Duration
	recentLimit int64
}

// DashboardRecentKey holds RecentEntry json documents, newest first.
const DashboardRecentKey = "analysis:recent"

// RecentEntry is one element of the recent analyses list.
type RecentEntry struct {
	Hash    string    `json:"hash"`
	Outcome Outcome   `json:"outcome"`
	Time    time.Time `json:"time"`
}

func NewDashboardSink(cache DashboardCache, ttl time.Duration, recentLimit int64) *DashboardSink {
	return &DashboardSink{
		cache:       cache,
		ttl:         ttl,
		recentLimit: recentLimit,
	}
}

func (s *DashboardSink) Name() string {
	return "dashboard"
}

func DashboardKey(report *Report) string {
	return ReportKey(report.OriginalHash.Hex())
}

// ReportKey is the key of the latest report of a transaction hash.
func ReportKey(hash string) string {
	return fmt.Sprintf("analysis:%v", hash)
}

func (s *DashboardSink) Publish(ctx context.Context, report *Report) error {
	if err := s.cache.Set(ctx, DashboardKey(report), report, s.ttl); err != nil {
		return fmt.Errorf("failed storing report: %w", err)
	}

	entry, err := json.Marshal(&RecentEntry{
		Hash:    report.OriginalHash.Hex(),
		Outcome: report.Outcome,
		Time:    report.FinishedAt,
	})
	if err != nil {
		return err
	}

	if err := s.cache.PushRecent(ctx, DashboardRecentKey, string(entry), s.recentLimit); err != nil {
		return fmt.Errorf("failed pushing recent entry: %w", err)
	}
	return nil
}
