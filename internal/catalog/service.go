package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/market"
)

type Store interface {
	List(ctx context.Context, f Filter) ([]market.Product, error)
	// Get returns the product whether or not it is available.
	Get(ctx context.Context, id int64) (market.Product, error)
	Insert(ctx context.Context, p *market.Product) error
	// Update writes only the columns patch sets and returns the stored row.
	Update(ctx context.Context, id int64, patch Patch) (market.Product, error)
	BySeller(ctx context.Context, sellerID int64) ([]market.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// FarmOwners resolves a farm to its owner. Unknown farms return
// market.ErrNotFound.
type FarmOwners interface {
	OwnerOf(ctx context.Context, farmID int64) (int64, error)
}

type Service struct {
	store Store
	farms FarmOwners
	log   zerolog.Logger
}

type Option func(*Service)

// WithFarms makes Create check that a product's farm belongs to its seller.
func WithFarms(f FarmOwners) Option { return func(s *Service) { s.farms = f } }

func NewService(store Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f Filter) ([]market.Product, error) {
	f = f.normalized()
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price above max_price", market.ErrInvalidRequest)
	}
	return s.store.List(ctx, f)
}

// Get hides unavailable products.
func (s *Service) Get(ctx context.Context, id int64) (market.Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return market.Product{}, err
	}
	if !p.IsAvailable {
		return market.Product{}, fmt.Errorf("%w: product %d", market.ErrNotFound, id)
	}
	return p, nil
}

func canSell(c market.Caller) bool {
	return c.Role == market.RoleFarmer || c.Role == market.RoleAdmin
}

func (s *Service) Create(ctx context.Context, caller market.Caller, in NewProduct) (market.Product, error) {
	if !canSell(caller) {
		return market.Product{}, fmt.Errorf("%w: only farmers can list products", market.ErrUnauthorized)
	}
	if in.MinimumOrder == 0 {
		in.MinimumOrder = 1
	}
	p := market.Product{
		SellerID:          caller.ID,
		FarmID:            in.FarmID,
		Name:              in.Name,
		Description:       in.Description,
		Price:             in.Price,
		QuantityAvailable: in.QuantityAvailable,
		MinimumOrder:      in.MinimumOrder,
		Unit:              in.Unit,
		Category:          in.Category,
		OrganicCertified:  in.OrganicCertified,
		IsAvailable:       true,
	}
	if err := validate(p); err != nil {
		return market.Product{}, err
	}
	if err := s.checkFarm(ctx, caller, in.FarmID); err != nil {
		return market.Product{}, err
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		return market.Product{}, err
	}
	s.log.Info().Int64("product_id", p.ID).Int64("seller_id", p.SellerID).Msg("product created")
	return p, nil
}

func (s *Service) checkFarm(ctx context.Context, caller market.Caller, farmID *int64) error {
	if farmID == nil || s.farms == nil {
		return nil
	}
	owner, err := s.farms.OwnerOf(ctx, *farmID)
	if errors.Is(err, market.ErrNotFound) {
		return fmt.Errorf("%w: farm %d does not exist", market.ErrInvalidRequest, *farmID)
	}
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && owner != caller.ID {
		return fmt.Errorf("%w: farm %d belongs to another user", market.ErrUnauthorized, *farmID)
	}
	return nil
}

// owned loads a product and checks that caller may change it.
func (s *Service) owned(ctx context.Context, caller market.Caller, id int64) (market.Product, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return market.Product{}, err
	}
	if !caller.IsAdmin() && p.SellerID != caller.ID {
		return market.Product{}, fmt.Errorf("%w: not the seller of product %d", market.ErrUnauthorized, id)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, caller market.Caller, id int64, patch Patch) (market.Product, error) {
	p, err := s.owned(ctx, caller, id)
	if err != nil {
		return market.Product{}, err
	}
	if err := validate(patch.Apply(p)); err != nil {
		return market.Product{}, err
	}
	return s.store.Update(ctx, id, patch)
}

// Deactivate hides the product from the catalog; existing orders keep it.
func (s *Service) Deactivate(ctx context.Context, caller market.Caller, id int64) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	off := false
	if _, err := s.store.Update(ctx, id, Patch{IsAvailable: &off}); err != nil {
		return err
	}
	s.log.Info().Int64("product_id", id).Int64("caller_id", caller.ID).Msg("product deactivated")
	return nil
}

func (s *Service) Mine(ctx context.Context, caller market.Caller) ([]market.Product, error) {
	if !canSell(caller) {
		return nil, fmt.Errorf("%w: only farmers have products", market.ErrUnauthorized)
	}
	return s.store.BySeller(ctx, caller.ID)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}
