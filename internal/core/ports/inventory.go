package ports

import (
	"context"

	"github.com/pocketmall/shopdata/internal/core/domain/catalog"
)

// InventoryAuthority is the external source of truth for product existence
// and stock level. It is consulted when adding or updating lines and during
// expiry revalidation.
type InventoryAuthority interface {
	GetProductByID(ctx context.Context, id string) (*catalog.Product, error)
}
