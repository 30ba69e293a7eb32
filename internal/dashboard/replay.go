// Package dashboard hosts helpers shared by the dashboard command.
package dashboard

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
	"github.com/eveflow/eveflow/internal/models"
)

// ReplayFile reads a local EVE file into the aggregator and returns
// the number of events ingested. Both a JSON array and
// newline-delimited JSON are accepted; in the newline form invalid
// lines are skipped, matching the tailer's tolerance.
func ReplayFile(path string, agg *aggregator.Aggregator) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	// Peek at the first non-space byte to pick the format.
	reader := bufio.NewReader(f)
	first, err := firstByte(reader)
	if err != nil {
		return 0, fmt.Errorf("read events file: %w", err)
	}

	if first == '[' {
		var raws []json.RawMessage
		if err := json.NewDecoder(reader).Decode(&raws); err != nil {
			return 0, fmt.Errorf("parse events array: %w", err)
		}
		events := make([]models.Event, 0, len(raws))
		for _, raw := range raws {
			ev, err := models.ParseEvent(raw)
			if err != nil {
				continue
			}
			events = append(events, ev)
		}
		return agg.Add(events), nil
	}

	total := 0
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := models.ParseEvent(line)
		if err != nil {
			continue
		}
		total += agg.Add([]models.Event{ev})
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("scan events file: %w", err)
	}
	return total, nil
}

func firstByte(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := r.Discard(1); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}
