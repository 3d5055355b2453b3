// Package jsonl 输出模块测试
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"live-strategy-monitor/internal/core/model"
)

func TestSignalRecord_FieldCompleteness_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("signals 记录 JSON 必含必需字段", prop.ForAll(
		func(seq uint64, minute int, rule string) bool {
			rec := SignalRecord{
				ID:       "id",
				TsUnixMs: 1700000000000,
				Seq:      seq,
				MatchID:  "1001",
				Minute:   minute,
				Results:  []model.StrategyResult{{Rule: rule, Phase: model.PhaseHT, Category: model.CategoryGoals}},
			}

			b, err := json.Marshal(rec)
			if err != nil {
				return false
			}
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				return false
			}
			for _, k := range []string{"id", "ts_unix_ms", "seq", "match_id", "minute", "metrics", "results"} {
				if _, ok := m[k]; !ok {
					return false
				}
			}
			results, ok := m["results"].([]any)
			return ok && len(results) == 1
		},
		gen.UInt64(),
		gen.IntRange(0, 120),
		gen.OneConstOf("goal_ht_home", "corners_ft_combined"),
	))

	properties.TestingRun(t)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return lines
}

func TestWriter_WriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alerts.jsonl")

	w, err := NewWriter(path, 100)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := w.Write(AlertRecord{ID: "a", Minute: i}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 10 {
		t.Fatalf("lines=%d, want 10", len(lines))
	}
	var rec AlertRecord
	if err := json.Unmarshal([]byte(lines[9]), &rec); err != nil || rec.Minute != 9 {
		t.Fatalf("最后一行 = %s, err=%v", lines[9], err)
	}
	if st := w.Stats(); st.Written != 10 || st.Failed != 0 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestWriter_FlushMakesRecordsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.jsonl")
	w, err := NewWriter(path, 10)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	_ = w.Write(SignalRecord{ID: "x"})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := len(readLines(t, path)); n != 1 {
		t.Fatalf("flush 后 lines=%d, want 1", n)
	}
}

func TestWriter_EncodeFailureCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	w, err := NewWriter(path, 10)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_ = w.Write(map[string]any{"ch": make(chan int)})
	_ = w.Write(map[string]any{"ok": true})
	_ = w.Close()

	if st := w.Stats(); st.Failed != 1 || st.Written != 1 {
		t.Errorf("Stats = %+v, want failed=1 written=1", st)
	}
}

func TestWriter_ClosedRejectsWrites(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "c.jsonl"), 1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Write(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after close = %v, want ErrClosed", err)
	}
	if err := w.TryWrite(1); !errors.Is(err, ErrClosed) {
		t.Errorf("TryWrite after close = %v, want ErrClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("重复 Close 应返回 nil: %v", err)
	}

	var nilWriter *Writer
	if err := nilWriter.Write(1); !errors.Is(err, ErrClosed) {
		t.Errorf("nil writer Write = %v", err)
	}
	if err := nilWriter.Close(); err != nil {
		t.Errorf("nil writer Close = %v", err)
	}
}
