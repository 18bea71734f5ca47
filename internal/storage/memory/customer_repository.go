package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerRepository struct {
	store *Store
}

// Create сохраняет нового клиента.
func (r *customerRepository) Create(ctx context.Context, input domain.CustomerInput) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	customer := newCustomer(input, s.now())
	s.customers[customer.ID] = &customerRecord{customer: customer, seq: s.nextSeq()}
	return customer, nil
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepository) Get(ctx context.Context, id string) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return rec.customer, nil
}

// List возвращает всех клиентов, новые первыми.
func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*customerRecord, 0, len(s.customers))
	for _, rec := range s.customers {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq > records[j].seq })

	result := make([]domain.Customer, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.customer)
	}
	return result, nil
}

func newCustomer(input domain.CustomerInput, now time.Time) domain.Customer {
	return domain.Customer{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		CreatedAt: now,
	}
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
