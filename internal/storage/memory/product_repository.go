package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	store *Store
}

// List возвращает товары по фильтру, новые первыми.
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*productRecord, 0, len(s.products))
	for _, rec := range s.products {
		if filter.Matches(rec.product) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })

	result := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.product)
	}
	return result, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return rec.product, nil
}

// Create сохраняет товар с новым идентификатором.
func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	product.ID = uuid.NewString()
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = &productRecord{product: product, seq: s.nextSeq()}
	return product, nil
}

// Update применяет частичное обновление. Пустое обновление возвращает текущую запись.
func (r *productRepository) Update(ctx context.Context, id string, update domain.ProductUpdate) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if update.IsEmpty() {
		return rec.product, nil
	}
	rec.product = update.Apply(rec.product)
	rec.product.UpdatedAt = s.now()
	return rec.product, nil
}

// Delete удаляет товар. Позиции уже оформленных заказов остаются.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("delete product %s: %w", id, domain.ErrProductNotFound)
	}
	delete(s.products, id)
	return nil
}

// Categories возвращает отсортированные непустые категории без повторов.
func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, rec := range s.products {
		category := rec.product.Category
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		result = append(result, category)
	}
	sort.Strings(result)
	return result, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
