package payment

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	txns     map[string]Transaction // keyed by provider payment id
	invoices map[string]Invoice     // keyed by provider invoice id
	refunds  map[string]Refund      // keyed by provider refund id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txns:     make(map[string]Transaction),
		invoices: make(map[string]Invoice),
		refunds:  make(map[string]Refund),
	}
}

func (s *MemoryStore) CreateTransaction(_ context.Context, txn *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txns[txn.ProviderPaymentID]; ok {
		return ErrDuplicateTransaction
	}
	s.txns[txn.ProviderPaymentID] = *txn
	return nil
}

func (s *MemoryStore) GetTransactionByProviderID(_ context.Context, providerPaymentID string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.txns[providerPaymentID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &txn, nil
}

func (s *MemoryStore) UpdateTransactionStatus(_ context.Context, providerPaymentID string, status TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[providerPaymentID]
	if !ok {
		return ErrTransactionNotFound
	}
	txn.Status = status
	s.txns[providerPaymentID] = txn
	return nil
}

func (s *MemoryStore) ListTransactionsByEmail(_ context.Context, email string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Transaction
	for _, txn := range s.txns {
		if txn.Email == email {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateInvoice(_ context.Context, inv *Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ProviderInvoiceID]; ok {
		return ErrDuplicateInvoice
	}
	s.invoices[inv.ProviderInvoiceID] = *inv
	return nil
}

func (s *MemoryStore) UpdateInvoiceStatus(_ context.Context, providerInvoiceID string, status InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[providerInvoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	s.invoices[providerInvoiceID] = inv
	return nil
}

func (s *MemoryStore) ListInvoicesByEmail(_ context.Context, email string) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Invoice
	for _, inv := range s.invoices {
		if inv.Email == email {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateRefund(_ context.Context, refund *Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refunds[refund.ProviderRefundID]; ok {
		return ErrDuplicateRefund
	}
	s.refunds[refund.ProviderRefundID] = *refund
	return nil
}

func (s *MemoryStore) ListRefundsByPaymentID(_ context.Context, providerPaymentID string) ([]Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Refund
	for _, r := range s.refunds {
		if r.ProviderPaymentID == providerPaymentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
