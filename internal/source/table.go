package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renewal-bot/internal/browser"
	"renewal-bot/internal/common/logger"
	"renewal-bot/internal/models"
)

// TableSource reads the worklist straight from the client table on the live
// page: name cell per row, first empty row ends the scan. Retirement hides
// the row in the page so the next table read never offers it again.
type TableSource struct {
	driver  browser.Driver
	logger  logger.Logger
	maxRows int
}

func NewTableSource(driver browser.Driver, log logger.Logger, maxRows int) *TableSource {
	if maxRows <= 0 {
		maxRows = 10
	}
	return &TableSource{driver: driver, logger: log, maxRows: maxRows}
}

func nameCell(row int) browser.Locator {
	// Rows are 1-based in the table.
	return browser.Locator{
		Strategy: browser.ByXPath,
		Value:    fmt.Sprintf(`//tbody/tr[%d]/td[2]`, row),
		Label:    fmt.Sprintf("name cell row %d", row),
	}
}

func (s *TableSource) Rows(ctx context.Context) ([]models.ClientRecord, error) {
	var rows []models.ClientRecord
	for i := 1; i <= s.maxRows; i++ {
		el, err := s.driver.FindElement(ctx, nameCell(i), browser.CondPresent, 3*time.Second)
		if err != nil {
			if errors.Is(err, browser.ErrNotFound) {
				break
			}
			return nil, err
		}
		name, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}

		first, last := splitName(name)
		rows = append(rows, models.ClientRecord{
			RowIndex:  i,
			FirstName: first,
			LastName:  last,
			FullName:  name,
			Status:    models.StatusPending,
		})
		s.logger.Info("worklist row", map[string]interface{}{
			"row":    i,
			"client": name,
		})
	}
	return rows, nil
}

// Retire hides the client's row in the table. Drivers without script support
// cannot hide rows, which is surfaced as an error so the coordinator falls
// back to the exclusion set.
func (s *TableSource) Retire(ctx context.Context, client *models.ClientRecord) error {
	runner, ok := s.driver.(browser.ScriptRunner)
	if !ok {
		return fmt.Errorf("driver cannot hide row %d", client.RowIndex)
	}
	js := fmt.Sprintf(
		`var row = document.querySelector('tbody tr:nth-child(%d)'); if (row) { row.style.display = 'none'; }`,
		client.RowIndex)
	if err := runner.Eval(ctx, js); err != nil {
		return fmt.Errorf("hide row %d: %w", client.RowIndex, err)
	}
	s.logger.Debug("hid processed row", map[string]interface{}{
		"row":    client.RowIndex,
		"client": client.FullName,
	})
	return nil
}
