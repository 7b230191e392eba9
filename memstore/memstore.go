// Package memstore keeps inventory, loans and publications in memory. It
// satisfies the services store interfaces and backs the service and
// controller tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"research_portal_api/apperr"
	"research_portal_api/models"
)

// Inventory holds items and loans behind one lock, so IssueLoan and
// ReturnLoan are atomic the way the database transactions are.
type Inventory struct {
	mu     sync.Mutex
	serial int64
	items  map[string]*models.InventoryItem
	loans  map[string]*models.Loan

	// FailCreate, when set, is returned by CreateItems before anything is stored.
	FailCreate error
}

func NewInventory() *Inventory {
	return &Inventory{
		items: map[string]*models.InventoryItem{},
		loans: map[string]*models.Loan{},
	}
}

func (s *Inventory) CreateItems(_ context.Context, items []*models.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate != nil {
		return s.FailCreate
	}
	now := time.Now().UTC()
	for _, it := range items {
		s.serial++
		it.ID = uuid.NewString()
		it.Serial = models.FormatSerial(s.serial)
		it.CreatedAt, it.UpdatedAt = now, now
		cp := *it
		s.items[it.ID] = &cp
	}
	return nil
}

func (s *Inventory) FindItemByID(_ context.Context, id string) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	cp := *it
	return &cp, nil
}

func (s *Inventory) ListItems(_ context.Context, q models.ItemQuery) (models.ItemPage, error) {
	q.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(q.Q))
	var all []models.InventoryItem
	for _, it := range s.items {
		if q.Status != "" && it.AdminStatus != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(it.Serial), needle) &&
			!strings.Contains(strings.ToLower(it.Description), needle) {
			continue
		}
		all = append(all, *it)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Serial < all[j].Serial })

	page := models.ItemPage{Total: int64(len(all)), Items: []models.InventoryItem{}}
	from := (q.Page - 1) * q.Size
	if from < len(all) {
		page.Items = all[from:min(from+q.Size, len(all))]
	}
	return page, nil
}

func (s *Inventory) UpdateItem(_ context.Context, id string, fn func(it *models.InventoryItem) error) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	*stored = cp
	return &cp, nil
}

func (s *Inventory) IssueLoan(_ context.Context, itemID string, build func(it *models.InventoryItem) (*models.Loan, error)) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[itemID]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	it := *stored
	l, err := build(&it)
	if err != nil {
		return nil, err
	}
	for _, open := range s.loans {
		if open.ItemID == itemID && open.ReturnDate == nil {
			return nil, apperr.Conflict("item already has an open loan")
		}
	}
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	cp := *l
	s.loans[l.ID] = &cp
	stored.AdminStatus = it.AdminStatus
	stored.UpdatedAt = now
	return l, nil
}

func (s *Inventory) ReturnLoan(_ context.Context, loanID string, apply func(l *models.Loan, it *models.InventoryItem) error) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	storedLoan, ok := s.loans[loanID]
	if !ok {
		return nil, apperr.NotFound("loan")
	}
	storedItem, ok := s.items[storedLoan.ItemID]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	l, it := *storedLoan, *storedItem
	if err := apply(&l, &it); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	storedLoan.Status = l.Status
	storedLoan.ReturnDate = l.ReturnDate
	storedLoan.ReturnedBy = l.ReturnedBy
	storedLoan.UpdatedAt = now
	storedItem.AdminStatus = it.AdminStatus
	storedItem.UpdatedAt = now
	out := *storedLoan
	return &out, nil
}

func (s *Inventory) FindLoanByID(_ context.Context, id string) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, apperr.NotFound("loan")
	}
	cp := *l
	return &cp, nil
}

func (s *Inventory) ListLoans(_ context.Context, f models.LoanFilter) ([]models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Loan{}
	for _, l := range s.loans {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.ItemID != "" && l.ItemID != f.ItemID {
			continue
		}
		if f.NationalID != "" && l.Borrower.NationalID != f.NationalID {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanDate.After(out[j].LoanDate) })
	return out, nil
}

func (s *Inventory) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.loans {
		if l.Status == models.LoanPending && l.ReturnDate == nil && l.DueDate.Before(now) {
			l.Status = models.LoanOverdue
			n++
		}
	}
	return n, nil
}

// Publications stores one publication type.
type Publications[T any, P interface {
	*T
	models.Record
}] struct {
	mu   sync.Mutex
	next uint
	rows map[uint]*T
}

func NewPublications[T any, P interface {
	*T
	models.Record
}]() *Publications[T, P] {
	return &Publications[T, P]{rows: map[uint]*T{}}
}

func clone[T any, P interface {
	*T
	models.Record
}](rec *T) *T {
	cp := *rec
	b := P(&cp).Base()
	b.Authors = slices.Clone(b.Authors)
	b.Tags = slices.Clone(b.Tags)
	return &cp
}

func (s *Publications[T, P]) Create(_ context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	b := P(rec).Base()
	now := time.Now().UTC()
	b.ID = s.next
	b.CreatedAt, b.UpdatedAt = now, now
	s.rows[b.ID] = clone[T, P](rec)
	return nil
}

func (s *Publications[T, P]) FindByID(_ context.Context, id uint) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("publication")
	}
	return clone[T, P](rec), nil
}

func (s *Publications[T, P]) List(_ context.Context, ownerUID string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []T{}
	for _, rec := range s.rows {
		if ownerUID != "" && P(rec).Base().OwnerUID != ownerUID {
			continue
		}
		out = append(out, *clone[T, P](rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return P(&out[i]).Base().ID > P(&out[j]).Base().ID
	})
	return out, nil
}

func (s *Publications[T, P]) Save(_ context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := P(rec).Base()
	if _, ok := s.rows[b.ID]; !ok {
		return apperr.NotFound("publication")
	}
	b.UpdatedAt = time.Now().UTC()
	s.rows[b.ID] = clone[T, P](rec)
	return nil
}

func (s *Publications[T, P]) Delete(_ context.Context, rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, P(rec).Base().ID)
	return nil
}
