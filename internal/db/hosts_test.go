package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"podgraph/internal/models"
)

func TestSaveAppearanceCreatesHostAndLink(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO hosts`).
		WithArgs("Terry", "Gross", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(9, 4, true, "Guest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	hostID, err := store.SaveAppearance(context.Background(), 9, "Terry", "Gross", models.RawPerson{
		Name:    "Terry Gross",
		Role:    "Guest",
		IsGuest: true,
	})
	assert.NoError(t, err)
	assert.Equal(t, 4, hostID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAppearanceMatchesByGraphID(t *testing.T) {
	store, mock := newMockStore(t)

	// The host is stored under a variant spelling; the graph id still
	// lands the credit on the same row.
	existing := sqlmock.NewRows([]string{
		"host_id", "first_name", "last_name", "bio", "profile_image_url", "website_url", "graph_id",
	}).AddRow(7, "John", "Smith", nil, nil, nil, "cr-9")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("cr-9").
		WillReturnRows(existing)
	mock.ExpectExec(`UPDATE hosts SET`).
		WithArgs(7, "A bio.", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(9, 7, true, "Guest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	hostID, err := store.SaveAppearance(context.Background(), 9, "Jon", "Smith", models.RawPerson{
		Name:    "Jon Smith",
		Role:    "Guest",
		Bio:     "A bio.",
		IsGuest: true,
		GraphID: "cr-9",
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, hostID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAppearanceRejectsConflictingGraphID(t *testing.T) {
	store, mock := newMockStore(t)

	existing := sqlmock.NewRows([]string{
		"host_id", "first_name", "last_name", "bio", "profile_image_url", "website_url", "graph_id",
	}).AddRow(4, "Terry", "Gross", nil, nil, nil, "graph-old")
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("graph-new").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\) = LOWER\(\$1\)`).
		WithArgs("Terry", "Gross").
		WillReturnRows(existing)
	mock.ExpectRollback()

	_, err := store.SaveAppearance(context.Background(), 9, "Terry", "Gross", models.RawPerson{
		Name:    "Terry Gross",
		GraphID: "graph-new",
	})
	assert.ErrorIs(t, err, ErrExternalIDConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHostByNameIsCaseInsensitive(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"host_id", "first_name", "last_name", "bio", "profile_image_url", "website_url", "graph_id",
	}).AddRow(4, "Terry", "Gross", nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\) = LOWER\(\$1\)`).
		WithArgs("terry", "GROSS").
		WillReturnRows(rows)

	h, err := store.GetHostByName(context.Background(), "terry", "GROSS")
	assert.NoError(t, err)
	assert.Equal(t, "Terry Gross", h.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachHostGraphIDBackfillsProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE hosts SET[\s\S]*bio\s+= COALESCE\(\$3, bio\)`).
		WithArgs(4, "graph-1", "A bio.", nil, "https://example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AttachHostGraphID(context.Background(), 4, "graph-1", "A bio.", "", "https://example.com")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachHostGraphIDConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE hosts SET`).
		WithArgs(4, "graph-1", nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.AttachHostGraphID(context.Background(), 4, "graph-1", "", "", "")
	assert.ErrorIs(t, err, ErrExternalIDConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHostByGraphIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetHostByGraphID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
