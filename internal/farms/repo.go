package farms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const farmColumns = `id, owner_id, name, description, address, latitude, longitude, total_area,
	farm_type, established_date, is_active, created_at, updated_at`

func scanFarm(row pgx.Row) (Farm, error) {
	var f Farm
	err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Description, &f.Address, &f.Latitude, &f.Longitude,
		&f.TotalArea, &f.FarmType, &f.EstablishedDate, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", market.ErrNotFound, what, id)
	}
	return postgres.StorageError(err)
}

func (r *Repo) List(ctx context.Context, ownerID *int64, offset, limit int) ([]Farm, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+farmColumns+` FROM farms
		WHERE $1::bigint IS NULL OR owner_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	defer rows.Close()

	out := []Farm{}
	for rows.Next() {
		f, err := scanFarm(rows)
		if err != nil {
			return nil, postgres.StorageError(err)
		}
		out = append(out, f)
	}
	return out, postgres.StorageError(rows.Err())
}

func (r *Repo) Get(ctx context.Context, id int64) (Farm, error) {
	f, err := scanFarm(r.DB.QueryRow(ctx, `SELECT `+farmColumns+` FROM farms WHERE id = $1`, id))
	return f, notFound(err, "farm", id)
}

func (r *Repo) Insert(ctx context.Context, f *Farm) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO farms(owner_id, name, description, address, latitude, longitude, total_area,
			farm_type, established_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		f.OwnerID, f.Name, f.Description, f.Address, f.Latitude, f.Longitude, f.TotalArea,
		f.FarmType, f.EstablishedDate, f.IsActive,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: a farm named %q already exists", market.ErrInvalidRequest, f.Name)
	}
	return postgres.StorageError(err)
}

func (r *Repo) Update(ctx context.Context, id int64, patch Patch) (Farm, error) {
	set := []string{"updated_at = now()"}
	args := []any{id}
	for _, a := range patch.assignments() {
		args = append(args, a.value)
		set = append(set, fmt.Sprintf("%s = $%d", a.column, len(args)))
	}
	sql := fmt.Sprintf(`UPDATE farms SET %s WHERE id = $1 RETURNING %s`, strings.Join(set, ", "), farmColumns)
	f, err := scanFarm(r.DB.QueryRow(ctx, sql, args...))
	if postgres.IsUniqueViolation(err) {
		return Farm{}, fmt.Errorf("%w: a farm with that name already exists", market.ErrInvalidRequest)
	}
	return f, notFound(err, "farm", id)
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM farms WHERE id = $1`, id)
	if err != nil {
		return postgres.StorageError(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: farm %d", market.ErrNotFound, id)
	}
	return nil
}

const zoneColumns = `id, farm_id, zone_name, zone_code, area_size, soil_type, irrigation_type, is_active, created_at`

func scanZone(row pgx.Row) (Zone, error) {
	var z Zone
	err := row.Scan(&z.ID, &z.FarmID, &z.Name, &z.Code, &z.AreaSize, &z.SoilType, &z.IrrigationType,
		&z.IsActive, &z.CreatedAt)
	return z, err
}

func (r *Repo) Zones(ctx context.Context, farmID int64) ([]Zone, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+zoneColumns+` FROM farm_zones WHERE farm_id = $1 ORDER BY id`, farmID)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	defer rows.Close()

	out := []Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, postgres.StorageError(err)
		}
		out = append(out, z)
	}
	return out, postgres.StorageError(rows.Err())
}

func (r *Repo) Zone(ctx context.Context, farmID, zoneID int64) (Zone, error) {
	z, err := scanZone(r.DB.QueryRow(ctx,
		`SELECT `+zoneColumns+` FROM farm_zones WHERE id = $1 AND farm_id = $2`, zoneID, farmID))
	return z, notFound(err, "zone", zoneID)
}

func (r *Repo) InsertZone(ctx context.Context, z *Zone) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO farm_zones(farm_id, zone_name, zone_code, area_size, soil_type, irrigation_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		z.FarmID, z.Name, z.Code, z.AreaSize, z.SoilType, z.IrrigationType, z.IsActive,
	).Scan(&z.ID, &z.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: zone name or code already used on farm %d", market.ErrInvalidRequest, z.FarmID)
	}
	return postgres.StorageError(err)
}

const plantingColumns = `id, zone_id, crop_name, planting_date, expected_harvest_date, quantity_planted,
	status, notes, created_at, updated_at`

func (r *Repo) Plantings(ctx context.Context, zoneID int64) ([]Planting, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+plantingColumns+` FROM plantings
		WHERE zone_id = $1 ORDER BY planting_date DESC, id DESC`, zoneID)
	if err != nil {
		return nil, postgres.StorageError(err)
	}
	defer rows.Close()

	out := []Planting{}
	for rows.Next() {
		var p Planting
		if err := rows.Scan(&p.ID, &p.ZoneID, &p.CropName, &p.PlantingDate, &p.ExpectedHarvestDate,
			&p.QuantityPlanted, &p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, postgres.StorageError(err)
		}
		out = append(out, p)
	}
	return out, postgres.StorageError(rows.Err())
}

func (r *Repo) InsertPlanting(ctx context.Context, p *Planting) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO plantings(zone_id, crop_name, planting_date, expected_harvest_date, quantity_planted, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		p.ZoneID, p.CropName, p.PlantingDate, p.ExpectedHarvestDate, p.QuantityPlanted, p.Status, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return postgres.StorageError(err)
}

func (r *Repo) Stats(ctx context.Context, farmID int64) (Stats, error) {
	var st Stats
	err := r.DB.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM farm_zones WHERE farm_id = $1),
			(SELECT count(*) FROM plantings p JOIN farm_zones z ON z.id = p.zone_id
			 WHERE z.farm_id = $1 AND p.status IN ('planted', 'growing'))`, farmID,
	).Scan(&st.ZonesCount, &st.ActivePlantings)
	return st, postgres.StorageError(err)
}
