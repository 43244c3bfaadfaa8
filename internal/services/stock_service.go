package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/models"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ImportInfo describes a positive stock adjustment (an intake).
type ImportInfo struct {
	UnitCost float64
	Note     string
}

// StockService applies signed stock deltas: optimistic local update
// first, then the same mutation inside one remote transaction. A
// failed remote write never rolls back the local change; the
// reconciliation tool corrects drift later.
type StockService struct {
	products repository.ProductRepository
	syncer   *CollectionSyncer[models.Product]
	store    remote.Store
	brk      *breaker.Breaker
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewStockService(
	products repository.ProductRepository,
	syncer *CollectionSyncer[models.Product],
	store remote.Store,
	brk *breaker.Breaker,
	log *zap.Logger,
) *StockService {
	return &StockService{
		products: products,
		syncer:   syncer,
		store:    store,
		brk:      brk,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// EnsureProduct returns the product named, creating it (with its SKU
// derived from the name) on first reference.
func (s *StockService) EnsureProduct(ctx context.Context, name string, listPrice float64) (*models.Product, error) {
	sku := DeriveSKU(name)
	p, err := s.products.GetByID(sku)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now()
	created := models.Product{
		ID:        sku,
		Name:      name,
		ListPrice: listPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.products.UpsertMany([]models.Product{created}); err != nil {
		return nil, err
	}
	s.syncer.ApplyLocal(created)

	if err := s.brk.Guard(ctx, "products.create", func(ctx context.Context) error {
		return s.store.Put(ctx, models.CollectionProducts, DocOf(created))
	}); err != nil {
		s.log.Warn("product created locally only", zap.String("sku", sku), zap.Error(err))
	}
	return &created, nil
}

// AdjustStock adds delta to the product's stock. Positive deltas also
// append an ImportRecord and grow the cumulative total-imported
// counter. The remote side replays the same delta inside a watched
// read-modify-write transaction so concurrent writers cannot lose
// updates.
func (s *StockService) AdjustStock(ctx context.Context, productID string, delta int, info *ImportInfo) (*models.Product, error) {
	p, err := s.products.GetByID(productID)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", productID, err)
	}

	now := s.now()
	var record *models.ImportRecord
	if delta > 0 {
		rec := models.ImportRecord{
			ID:        s.newID(),
			Timestamp: now,
			Quantity:  delta,
		}
		if info != nil {
			rec.UnitCost = info.UnitCost
			rec.Note = info.Note
		}
		record = &rec
	}

	p.StockQuantity += delta
	if record != nil {
		p.ImportRecords = append(p.ImportRecords, *record)
		p.TotalImported += delta
	}
	p.UpdatedAt = now

	if err := s.products.UpsertMany([]models.Product{*p}); err != nil {
		return nil, err
	}
	s.syncer.ApplyLocal(*p)

	ref := remote.Ref{Collection: models.CollectionProducts, ID: productID}
	err = s.brk.Guard(ctx, "products.adjust", func(ctx context.Context) error {
		return s.store.RunTransaction(ctx, []remote.Ref{ref}, func(tx remote.Tx) error {
			doc, err := tx.Get(ref)
			if err != nil {
				return err
			}
			out := *p
			if doc != nil {
				// Apply the same delta on top of the remote copy, which
				// may already carry other clients' adjustments.
				var remoteCopy models.Product
				if err := decodeDoc(doc, &remoteCopy); err != nil {
					return err
				}
				remoteCopy.StockQuantity += delta
				if record != nil {
					remoteCopy.ImportRecords = append(remoteCopy.ImportRecords, *record)
					remoteCopy.TotalImported += delta
				}
				remoteCopy.UpdatedAt = now
				out = remoteCopy
			}
			tx.Put(models.CollectionProducts, DocOf(out))
			return nil
		})
	})
	if err != nil {
		// Local state stays authoritative for the session.
		s.log.Warn("stock adjusted locally only", zap.String("sku", productID), zap.Error(err))
	}
	return p, nil
}

func decodeDoc(doc *remote.Doc, out any) error {
	return json.Unmarshal(doc.Data, out)
}
