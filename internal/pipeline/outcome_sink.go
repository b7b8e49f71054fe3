package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wrapRelay/internal/model"
)

// OutcomeSink appends per-entry processing outcomes to a JSONL file. It is
// the operational audit stream; the HTTP response never carries per-entry
// detail.
type OutcomeSink struct {
	path string
	mu   sync.Mutex
}

func NewOutcomeSink(path string) *OutcomeSink {
	return &OutcomeSink{path: path}
}

// Append writes one batch of outcomes as JSON lines.
func (s *OutcomeSink) Append(outcomes []model.EntryOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create outcome dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open outcome file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, outcome := range outcomes {
		line, err := json.Marshal(outcome)
		if err != nil {
			return fmt.Errorf("marshal outcome: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write outcome: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush outcomes: %w", err)
	}

	return nil
}
