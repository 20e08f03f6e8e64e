package domain

import (
	"context"
)

type OrderRepository interface {
	Insert(ctx context.Context, order *Order) error
	ListAll(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
}

type Cache interface {
	Get(id int64) (*Order, bool)
	Set(order *Order)
}
