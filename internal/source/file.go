package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
)

// FileSource reads client names from a compiled list file, one full name per
// line. A sidecar file of processed names makes retirement durable across
// runs: names found in the sidecar are skipped at load time.
type FileSource struct {
	listPath      string
	processedPath string
	maxRows       int
	logger        logger.Logger

	mu        sync.Mutex
	processed map[string]struct{}
}

func NewFileSource(listPath, processedPath string, maxRows int, log logger.Logger) (*FileSource, error) {
	s := &FileSource{
		listPath:      listPath,
		processedPath: processedPath,
		maxRows:       maxRows,
		logger:        log,
		processed:     make(map[string]struct{}),
	}
	if err := s.loadProcessed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) loadProcessed() error {
	f, err := os.Open(s.processedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open processed sidecar: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			s.processed[strings.ToLower(name)] = struct{}{}
		}
	}
	return scanner.Err()
}

func (s *FileSource) Rows(ctx context.Context) ([]models.ClientRecord, error) {
	f, err := os.Open(s.listPath)
	if err != nil {
		return nil, fmt.Errorf("open client list: %w", err)
	}
	defer f.Close()

	var rows []models.ClientRecord
	row := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		row++
		if _, done := s.processed[strings.ToLower(name)]; done {
			s.logger.Debug("skipping already-processed client", map[string]interface{}{
				"client": name,
			})
			continue
		}

		first, last := splitName(name)
		rows = append(rows, models.ClientRecord{
			RowIndex:  row,
			FirstName: first,
			LastName:  last,
			FullName:  name,
			Status:    models.StatusPending,
		})
		if s.maxRows > 0 && len(rows) >= s.maxRows {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read client list: %w", err)
	}
	return rows, nil
}

// Retire appends the client's name to the sidecar. The in-memory set is
// updated first so a same-run re-read also skips the row.
func (s *FileSource) Retire(_ context.Context, client *models.ClientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[strings.ToLower(client.FullName)] = struct{}{}

	f, err := os.OpenFile(s.processedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open processed sidecar: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, client.FullName); err != nil {
		return fmt.Errorf("append processed name: %w", err)
	}
	return nil
}

func splitName(full string) (first, last string) {
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
