package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Journal appends every event as one JSON line to a file. The file survives
// restarts and is the audit trail for a day's run.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func NewJournal(path string) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (j *Journal) Publish(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := j.writer.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return j.writer.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}
