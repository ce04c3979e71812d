package notifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileSeparator = "--------------------------------------------------"

// FileNotifier appends reports to a text file, one block per report.
type FileNotifier struct {
	Path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileNotifier creates the parent directory on first write.
func NewFileNotifier(path string) *FileNotifier {
	return &FileNotifier{Path: path, now: time.Now}
}

func (f *FileNotifier) Name() string { return "file" }

func (f *FileNotifier) Notify(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	fh, err := os.OpenFile(f.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	defer fh.Close()

	block := fmt.Sprintf("%s\n[%s]\n%s\n%s\n\n",
		fileSeparator, f.now().Format(time.RFC3339), htmlTags.Replace(msg.Text), fileSeparator)
	if _, err := fh.WriteString(block); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
