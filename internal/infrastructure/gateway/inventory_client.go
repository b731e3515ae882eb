package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pocketmall/shopdata/internal/core/domain/catalog"
	"github.com/pocketmall/shopdata/internal/core/ports"
)

// InventoryClient queries the inventory authority. A 404 is a definite
// answer (the product is gone), not an error.
type InventoryClient struct {
	client *Client
}

func NewInventoryClient(client *Client) *InventoryClient {
	return &InventoryClient{client: client}
}

func (c *InventoryClient) GetProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	status, remoteErr, err := c.client.do(ctx, http.MethodGet, "/api/products/"+id, nil, &p)
	if status == http.StatusNotFound {
		return &catalog.Product{ID: id, Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if remoteErr != nil {
		return nil, fmt.Errorf("product lookup returned status %d: %s", status, remoteErr.Message)
	}
	p.Exists = true
	return &p, nil
}

var _ ports.InventoryAuthority = (*InventoryClient)(nil)
