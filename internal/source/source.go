// Package source provides the client worklist: where the rows come from and
// how a processed row is retired so it is never offered again.
package source

import (
	"context"

	"renewal-bot/internal/models"
)

// Provider yields the ordered batch worklist, read once per batch, and
// retires rows as the coordinator finishes them.
type Provider interface {
	Rows(ctx context.Context) ([]models.ClientRecord, error)
	Retire(ctx context.Context, client *models.ClientRecord) error
}
