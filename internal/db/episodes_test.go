package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"podgraph/internal/models"
)

func TestSaveEpisodeCreates(t *testing.T) {
	store, mock := newMockStore(t)

	published := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	duration := 3600

	mock.ExpectQuery(`SELECT catalog_id FROM episodes WHERE podcast_id = \$1 AND title = \$2`).
		WithArgs(7, "Pilot").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(7, "Pilot", "The first one.", "https://example.com/1.mp3",
			&duration, &published, nil, nil, "ep-111").
		WillReturnRows(sqlmock.NewRows([]string{"episode_id"}).AddRow(21))

	id, err := store.SaveEpisode(context.Background(), 7, models.RawEpisode{
		Title:           "Pilot",
		Description:     "The first one.",
		AudioURL:        "https://example.com/1.mp3",
		DurationSeconds: &duration,
		PublishedDate:   &published,
		CatalogID:       "ep-111",
	})
	assert.NoError(t, err)
	assert.Equal(t, 21, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveEpisodeRejectsConflictingCatalogID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT catalog_id FROM episodes WHERE podcast_id = \$1 AND title = \$2`).
		WithArgs(7, "Pilot").
		WillReturnRows(sqlmock.NewRows([]string{"catalog_id"}).AddRow("ep-999"))

	_, err := store.SaveEpisode(context.Background(), 7, models.RawEpisode{
		Title:     "Pilot",
		CatalogID: "ep-111",
	})
	assert.ErrorIs(t, err, ErrExternalIDConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEpisodesWithoutGraphID(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"episode_id", "title", "graph_id", "catalog_id", "podcast_title", "podcast_catalog_id",
	}).AddRow(21, "Pilot", nil, "ep-111", "Radio Hour", "111")
	mock.ExpectQuery(`SELECT e\.episode_id, e\.title, e\.graph_id`).
		WithArgs(50).
		WillReturnRows(rows)

	refs, err := store.EpisodesWithoutGraphID(context.Background(), 50)
	assert.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.Equal(t, "Radio Hour", refs[0].PodcastTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachEpisodeGraphIDConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE episodes SET graph_id = \$2`).
		WithArgs(21, "graph-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AttachEpisodeGraphID(context.Background(), 21, "graph-1")
	assert.ErrorIs(t, err, ErrExternalIDConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
