package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/ratewatch/ratewatch/internal/panel"
)

// header is the fixed column order of an export.
var header = []string{
	"channel",
	"messages",
	"mean_hz",
	"median_hz",
	"stddev_hz",
	"min_hz",
	"max_hz",
	"samples",
	"filtered",
	"outliers",
}

// Write serializes rows as CSV: one header row, then one row per channel with
// the five rate statistics printed to 4 decimal places.
func Write(w io.Writer, rows []panel.ChannelSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, row := range rows {
		s := row.Summary
		record := []string{
			row.Channel,
			strconv.Itoa(s.SampleCount),
			rate(s.Mean),
			rate(s.Median),
			rate(s.StdDev),
			rate(s.Min),
			rate(s.Max),
			strconv.Itoa(len(s.Raw)),
			strconv.Itoa(len(s.Filtered)),
			strconv.Itoa(s.Outliers),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row %q: %w", row.Channel, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// rate formats a rate statistic to the contract's 4 decimal places.
func rate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Source yields the rows to export. *panel.Panel satisfies it.
type Source interface {
	Summaries() []panel.ChannelSummary
}

// FileSink writes export snapshots to a fixed path. Writes go through a
// temp-file rename and an advisory file lock so a concurrent exporter on the
// same path cannot interleave or observe a half-written file.
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Save writes one CSV snapshot of rows to the sink's path.
func (s *FileSink) Save(rows []panel.ChannelSummary) error {
	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("export: lock %q: %w", s.path, err)
	}
	defer lock.Unlock() //nolint:errcheck

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("export: create %q: %w", tmp, err)
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("export: close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("export: rename %q: %w", tmp, err)
	}
	return nil
}

// Run periodically saves a snapshot from src until ctx is cancelled. A failed
// save is logged and retried on the next tick.
func (s *FileSink) Run(ctx context.Context, interval time.Duration, src Source) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Save(src.Summaries()); err != nil {
				slog.Error("export: periodic save failed", "path", s.path, "err", err)
			}
		}
	}
}
