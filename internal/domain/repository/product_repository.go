package repository

import (
	"context"

	"go-clinic-queue/internal/domain/entity"

	"github.com/google/uuid"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
}

type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Client, error)
}
