package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"plantita.org/internal/catalog"
	"plantita.org/internal/ids"
)

const plantColumns = `id, scientific_name, common_name, description, watering, sunlight, wiki_url, image_url, created_at`

func (s *Store) CreatePlant(ctx context.Context, params catalog.PlantParams) (catalog.Plant, error) {
	if strings.TrimSpace(params.ScientificName) == "" {
		return catalog.Plant{}, catalog.ErrInvalidInput
	}
	id := ids.New()
	row := s.db.QueryRowContext(ctx, `
		insert into plants(id, scientific_name, common_name, description, watering, sunlight, wiki_url, image_url)
		values($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (scientific_name) do nothing
		returning `+plantColumns,
		id, params.ScientificName, params.CommonName, params.Description,
		params.Watering, params.Sunlight, params.WikiURL, params.ImageURL,
	)
	plant, err := scanPlant(row)
	if errors.Is(err, catalog.ErrNotFound) {
		// Conflict target swallowed the insert: the species already exists.
		return catalog.Plant{}, catalog.ErrAlreadyExists
	}
	return plant, err
}

func (s *Store) GetPlant(ctx context.Context, id string) (catalog.Plant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+plantColumns+` from plants where id=$1`, id)
	return scanPlant(row)
}

func (s *Store) ListPlants(ctx context.Context) ([]catalog.Plant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+plantColumns+` from plants order by created_at asc`)
	if err != nil {
		return nil, err
	}
	return collectPlants(rows)
}

func (s *Store) SearchPlants(ctx context.Context, query string) ([]catalog.Plant, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListPlants(ctx)
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+plantColumns+` from plants
		 where scientific_name ilike '%'||$1||'%' or common_name ilike '%'||$1||'%'
		 order by created_at asc`, query)
	if err != nil {
		return nil, err
	}
	return collectPlants(rows)
}

func (s *Store) UpdatePlant(ctx context.Context, id string, params catalog.PlantParams) (catalog.Plant, error) {
	if strings.TrimSpace(params.ScientificName) == "" {
		return catalog.Plant{}, catalog.ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		update plants
		set scientific_name=$2, common_name=$3, description=$4, watering=$5, sunlight=$6, wiki_url=$7, image_url=$8
		where id=$1
		returning `+plantColumns,
		id, params.ScientificName, params.CommonName, params.Description,
		params.Watering, params.Sunlight, params.WikiURL, params.ImageURL,
	)
	return scanPlant(row)
}

func (s *Store) DeletePlant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from plants where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanPlant(row *sql.Row) (catalog.Plant, error) {
	var p catalog.Plant
	err := row.Scan(&p.ID, &p.ScientificName, &p.CommonName, &p.Description,
		&p.Watering, &p.Sunlight, &p.WikiURL, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Plant{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Plant{}, err
	}
	return p, nil
}

func collectPlants(rows *sql.Rows) ([]catalog.Plant, error) {
	defer rows.Close()
	var out []catalog.Plant
	for rows.Next() {
		var p catalog.Plant
		if err := rows.Scan(&p.ID, &p.ScientificName, &p.CommonName, &p.Description,
			&p.Watering, &p.Sunlight, &p.WikiURL, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
