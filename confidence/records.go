// Calibration record feed.
//
// Records arrive from an external benchmark harness as JSON Lines: one
// {type, predicted, actual} object per line. Blank lines are skipped.

package confidence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadRecords parses a JSONL stream of calibration records.
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid record: %w", line, err)
		}
		if rec.Predicted < 0 || rec.Predicted > 1 {
			return nil, fmt.Errorf("line %d: predicted %v outside [0,1]", line, rec.Predicted)
		}
		if rec.Actual < 0 || rec.Actual > 1 {
			return nil, fmt.Errorf("line %d: actual %v outside [0,1]", line, rec.Actual)
		}

		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	return records, nil
}

// LoadRecords reads calibration records from a JSONL file.
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening records file: %w", err)
	}
	defer f.Close()

	return ReadRecords(f)
}
