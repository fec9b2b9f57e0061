package farms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/growthfarm/market-api/internal/market"
)

type Store interface {
	// List returns every farm when ownerID is nil.
	List(ctx context.Context, ownerID *int64, offset, limit int) ([]Farm, error)
	Get(ctx context.Context, id int64) (Farm, error)
	Insert(ctx context.Context, f *Farm) error
	// Update writes only the columns patch sets and returns the stored row.
	Update(ctx context.Context, id int64, patch Patch) (Farm, error)
	// Delete removes the farm with its zones and plantings. Products keep
	// existing without a farm.
	Delete(ctx context.Context, id int64) error
	Zones(ctx context.Context, farmID int64) ([]Zone, error)
	// Zone returns market.ErrNotFound unless the zone belongs to farmID.
	Zone(ctx context.Context, farmID, zoneID int64) (Zone, error)
	InsertZone(ctx context.Context, z *Zone) error
	Plantings(ctx context.Context, zoneID int64) ([]Planting, error)
	InsertPlanting(ctx context.Context, p *Planting) error
	Stats(ctx context.Context, farmID int64) (Stats, error)
}

type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{store: store, log: log}
}

func canOwn(c market.Caller) bool {
	return c.Role == market.RoleFarmer || c.Role == market.RoleAdmin
}

// List returns the caller's farms, or every farm for admins.
func (s *Service) List(ctx context.Context, caller market.Caller, offset, limit int) ([]Farm, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	var owner *int64
	if !caller.IsAdmin() {
		owner = &caller.ID
	}
	return s.store.List(ctx, owner, offset, limit)
}

// owned loads a farm and checks that caller may see and change it.
func (s *Service) owned(ctx context.Context, caller market.Caller, id int64) (Farm, error) {
	f, err := s.store.Get(ctx, id)
	if err != nil {
		return Farm{}, err
	}
	if !caller.IsAdmin() && f.OwnerID != caller.ID {
		return Farm{}, fmt.Errorf("%w: not the owner of farm %d", market.ErrUnauthorized, id)
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, caller market.Caller, id int64) (Farm, error) {
	return s.owned(ctx, caller, id)
}

// OwnerOf reports who owns a farm. The catalog uses it to check that a
// product is listed under the seller's own farm.
func (s *Service) OwnerOf(ctx context.Context, farmID int64) (int64, error) {
	f, err := s.store.Get(ctx, farmID)
	if err != nil {
		return 0, err
	}
	return f.OwnerID, nil
}

func (s *Service) Create(ctx context.Context, caller market.Caller, in NewFarm) (Farm, error) {
	if !canOwn(caller) {
		return Farm{}, fmt.Errorf("%w: only farmers can register farms", market.ErrUnauthorized)
	}
	f := Farm{
		OwnerID:         caller.ID,
		Name:            in.Name,
		Description:     in.Description,
		Address:         in.Address,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		TotalArea:       in.TotalArea,
		FarmType:        in.FarmType,
		EstablishedDate: in.EstablishedDate,
		IsActive:        true,
	}
	if err := validateFarm(f); err != nil {
		return Farm{}, err
	}
	if err := s.store.Insert(ctx, &f); err != nil {
		return Farm{}, err
	}
	s.log.Info().Int64("farm_id", f.ID).Int64("owner_id", f.OwnerID).Msg("farm created")
	return f, nil
}

func (s *Service) Update(ctx context.Context, caller market.Caller, id int64, patch Patch) (Farm, error) {
	f, err := s.owned(ctx, caller, id)
	if err != nil {
		return Farm{}, err
	}
	if err := validateFarm(patch.Apply(f)); err != nil {
		return Farm{}, err
	}
	return s.store.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, caller market.Caller, id int64) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("farm_id", id).Int64("caller_id", caller.ID).Msg("farm deleted")
	return nil
}

func (s *Service) Zones(ctx context.Context, caller market.Caller, farmID int64) ([]Zone, error) {
	if _, err := s.owned(ctx, caller, farmID); err != nil {
		return nil, err
	}
	return s.store.Zones(ctx, farmID)
}

func (s *Service) CreateZone(ctx context.Context, caller market.Caller, farmID int64, in NewZone) (Zone, error) {
	if _, err := s.owned(ctx, caller, farmID); err != nil {
		return Zone{}, err
	}
	if err := validateZone(in); err != nil {
		return Zone{}, err
	}
	z := Zone{
		FarmID:         farmID,
		Name:           in.Name,
		Code:           in.Code,
		AreaSize:       in.AreaSize,
		SoilType:       in.SoilType,
		IrrigationType: in.IrrigationType,
		IsActive:       true,
	}
	if err := s.store.InsertZone(ctx, &z); err != nil {
		return Zone{}, err
	}
	return z, nil
}

func (s *Service) Plantings(ctx context.Context, caller market.Caller, farmID, zoneID int64) ([]Planting, error) {
	if _, err := s.ownedZone(ctx, caller, farmID, zoneID); err != nil {
		return nil, err
	}
	return s.store.Plantings(ctx, zoneID)
}

func (s *Service) CreatePlanting(ctx context.Context, caller market.Caller, farmID, zoneID int64, in NewPlanting) (Planting, error) {
	if _, err := s.ownedZone(ctx, caller, farmID, zoneID); err != nil {
		return Planting{}, err
	}
	if in.Status == "" {
		in.Status = PlantingPlanned
	}
	if err := validatePlanting(in); err != nil {
		return Planting{}, err
	}
	p := Planting{
		ZoneID:              zoneID,
		CropName:            in.CropName,
		PlantingDate:        in.PlantingDate,
		ExpectedHarvestDate: in.ExpectedHarvestDate,
		QuantityPlanted:     in.QuantityPlanted,
		Status:              in.Status,
		Notes:               in.Notes,
	}
	if err := s.store.InsertPlanting(ctx, &p); err != nil {
		return Planting{}, err
	}
	return p, nil
}

func (s *Service) ownedZone(ctx context.Context, caller market.Caller, farmID, zoneID int64) (Zone, error) {
	if _, err := s.owned(ctx, caller, farmID); err != nil {
		return Zone{}, err
	}
	return s.store.Zone(ctx, farmID, zoneID)
}

func (s *Service) Dashboard(ctx context.Context, caller market.Caller, farmID int64) (Dashboard, error) {
	f, err := s.owned(ctx, caller, farmID)
	if err != nil {
		return Dashboard{}, err
	}
	st, err := s.store.Stats(ctx, farmID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Farm:           f,
		Stats:          st,
		RecentActivity: fmt.Sprintf("Farm has %d zones and %d active plantings", st.ZonesCount, st.ActivePlantings),
	}, nil
}
