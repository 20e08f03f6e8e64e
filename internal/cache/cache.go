package cache

import (
	"context"

	"github.com/TemirB/merch-checkout/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

//go:generate mockgen -source cache.go -destination=cache_mock_test.go -package=cache

type repo interface {
	ListAll(ctx context.Context) ([]domain.Order, error)
}

// Cache holds recently captured order records by id. Records are never
// updated after insert, so entries cannot go stale.
type Cache struct {
	size int
	lru  *lru.Cache[int64, domain.Order]
}

var _ domain.Cache = (*Cache)(nil)

func New(size int) (*Cache, error) {
	if size < 1 {
		size = 1
	}
	c, err := lru.New[int64, domain.Order](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		size: size,
		lru:  c,
	}, nil
}

// Warm loads up to size of the newest records. Errors leave the cache cold.
func (c *Cache) Warm(ctx context.Context, repo repo) int {
	orders, err := repo.ListAll(ctx)
	if err != nil {
		return 0
	}
	if len(orders) > c.size {
		orders = orders[:c.size]
	}
	// oldest first so the newest end up most recently used
	for i := len(orders) - 1; i >= 0; i-- {
		c.Set(&orders[i])
	}
	return len(orders)
}

func (c *Cache) Get(id int64) (*domain.Order, bool) {
	order, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return &order, true
}

func (c *Cache) Set(order *domain.Order) {
	c.lru.Add(order.ID, *order)
}

func (c *Cache) Len() int { return c.lru.Len() }
