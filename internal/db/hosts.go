package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podgraph/internal/models"
)

func (s *Store) GetHostByName(ctx context.Context, firstName, lastName string) (models.Host, error) {
	var h models.Host
	err := s.db.GetContext(ctx, &h,
		"SELECT * FROM hosts WHERE LOWER(first_name) = LOWER($1) AND LOWER(last_name) = LOWER($2)",
		firstName, lastName)
	return h, err
}

func (s *Store) GetHostByGraphID(ctx context.Context, graphID string) (models.Host, error) {
	var h models.Host
	err := s.db.GetContext(ctx, &h, "SELECT * FROM hosts WHERE graph_id = $1", graphID)
	return h, err
}

// SaveAppearance upserts a host and links them to an episode as one atomic
// unit. The episode must already exist; a repeat observation of the same
// (episode, host) pair updates is_guest and role instead of duplicating.
func (s *Store) SaveAppearance(ctx context.Context, episodeID int, firstName, lastName string, p models.RawPerson) (int, error) {
	var hostID int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		hostID, err = upsertHost(ctx, tx, firstName, lastName, p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO episode_hosts (episode_id, host_id, is_guest, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (episode_id, host_id) DO UPDATE SET
				is_guest = EXCLUDED.is_guest,
				role     = COALESCE(EXCLUDED.role, episode_hosts.role)`,
			episodeID, hostID, p.IsGuest, nullif(p.Role))
		if err != nil {
			return fmt.Errorf("link host %d to episode %d: %w", hostID, episodeID, err)
		}
		return nil
	})
	return hostID, err
}

// upsertHost matches on graph id first when the record carries one, then
// on case-normalized name. A graph id already stored wins over the name
// key, so a credit under a variant spelling still lands on the same host.
func upsertHost(ctx context.Context, tx *sqlx.Tx, firstName, lastName string, p models.RawPerson) (int, error) {
	if p.GraphID != "" {
		var existing models.Host
		err := sqlx.GetContext(ctx, tx, &existing,
			"SELECT * FROM hosts WHERE graph_id = $1", p.GraphID)
		if err == nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE hosts SET
					bio               = COALESCE($2, bio),
					profile_image_url = COALESCE($3, profile_image_url),
					website_url       = COALESCE($4, website_url)
				WHERE host_id = $1`,
				existing.ID, nullif(p.Bio), nullif(p.ImageURL), nullif(p.WebsiteURL))
			if err != nil {
				return 0, fmt.Errorf("update host %d: %w", existing.ID, err)
			}
			return existing.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("lookup host by graph id %s: %w", p.GraphID, err)
		}

		err = sqlx.GetContext(ctx, tx, &existing,
			"SELECT * FROM hosts WHERE LOWER(first_name) = LOWER($1) AND LOWER(last_name) = LOWER($2)",
			firstName, lastName)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("lookup host %s %s: %w", firstName, lastName, err)
		}
		if err == nil && existing.GraphID != nil && *existing.GraphID != p.GraphID {
			return 0, fmt.Errorf("host %s %s already has graph id %s, incoming %s: %w",
				firstName, lastName, *existing.GraphID, p.GraphID, ErrExternalIDConflict)
		}
	}

	var hostID int
	query := `
		INSERT INTO hosts (first_name, last_name, bio, profile_image_url, website_url, graph_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (first_name, last_name) DO UPDATE SET
			bio               = COALESCE(EXCLUDED.bio, hosts.bio),
			profile_image_url = COALESCE(EXCLUDED.profile_image_url, hosts.profile_image_url),
			website_url       = COALESCE(EXCLUDED.website_url, hosts.website_url),
			graph_id          = COALESCE(hosts.graph_id, EXCLUDED.graph_id)
		RETURNING host_id`
	err := tx.GetContext(ctx, &hostID, query,
		firstName, lastName, nullif(p.Bio), nullif(p.ImageURL), nullif(p.WebsiteURL), nullif(p.GraphID))
	if err != nil {
		return 0, fmt.Errorf("upsert host %s %s: %w", firstName, lastName, err)
	}
	return hostID, nil
}

// HostsWithoutGraphID returns a bounded batch of hosts that still need a
// metadata-graph id.
func (s *Store) HostsWithoutGraphID(ctx context.Context, limit int) ([]models.Host, error) {
	var hosts []models.Host
	err := s.db.SelectContext(ctx, &hosts,
		"SELECT * FROM hosts WHERE graph_id IS NULL ORDER BY host_id LIMIT $1", limit)
	return hosts, err
}

// AttachHostGraphID sets the graph id and refreshes profile fields from
// the directory, keeping stored values only where the incoming field is
// empty. A host carrying a different graph id is reported as a conflict,
// never overwritten.
func (s *Store) AttachHostGraphID(ctx context.Context, hostID int, graphID, bio, imageURL, websiteURL string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hosts SET
			graph_id          = $2,
			bio               = COALESCE($3, bio),
			profile_image_url = COALESCE($4, profile_image_url),
			website_url       = COALESCE($5, website_url)
		WHERE host_id = $1 AND (graph_id IS NULL OR graph_id = $2)`,
		hostID, graphID, nullif(bio), nullif(imageURL), nullif(websiteURL))
	if err != nil {
		return fmt.Errorf("attach graph id to host %d: %w", hostID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("host %d: %w", hostID, ErrExternalIDConflict)
	}
	return nil
}
