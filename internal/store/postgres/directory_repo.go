package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"donorslot/internal/domain"
	"donorslot/internal/store"
)

// DirectoryRepo reads the donor and center tables. Rows there are owned by
// other services; the seed helpers exist for development and tests.
type DirectoryRepo struct {
	db *bun.DB
}

func NewDirectoryRepo(db *bun.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) DonorExists(ctx context.Context, donorID string) (bool, error) {
	ok, err := r.db.NewSelect().
		Model((*domain.Donor)(nil)).
		Where("id = ?", donorID).
		Exists(ctx)
	return ok, mapError(err)
}

func (r *DirectoryRepo) GetCenter(ctx context.Context, centerID string) (domain.Center, error) {
	var c domain.Center
	err := r.db.NewSelect().
		Model(&c).
		Where("id = ?", centerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Center{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Center{}, mapError(err)
	}
	return c, nil
}

func (r *DirectoryRepo) SeedDonors(ctx context.Context, donors ...domain.Donor) error {
	if len(donors) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&donors).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx)
	return mapError(err)
}

func (r *DirectoryRepo) SeedCenters(ctx context.Context, centers ...domain.Center) error {
	if len(centers) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(&centers).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("city = EXCLUDED.city").
		Set("state = EXCLUDED.state").
		Exec(ctx)
	return mapError(err)
}
