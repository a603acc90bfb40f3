package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/debtledger/backend/internal/graph"
	"github.com/vanshika/debtledger/backend/internal/repository"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// LedgerHealthService checks the ledger store and, when configured, the
// graph database.
type LedgerHealthService struct {
	Store repository.Store
	Graph graph.Client
}

// Probe implements the HealthService interface.
func (s LedgerHealthService) Probe(ctx context.Context) error {
	var errs []error
	if s.Store != nil {
		if err := s.Store.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.Graph != nil {
		if err := s.Graph.VerifyConnectivity(ctx); err != nil {
			errs = append(errs, fmt.Errorf("graph: %w", err))
		}
	}
	return errors.Join(errs...)
}
