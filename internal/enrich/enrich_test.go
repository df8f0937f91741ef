package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"podgraph/internal/graphapi"
	"podgraph/internal/resolver"
	"podgraph/internal/test"
)

func graphServer(t *testing.T, respond func(variables map[string]string) string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]string `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		fmt.Fprint(w, respond(req.Variables))
	}))
}

func graphClient(url string) *graphapi.Client {
	return graphapi.NewClient(url, "client-id", "api-key",
		graphapi.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		graphapi.WithRetry(1, 0))
}

func hostRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"host_id", "first_name", "last_name", "bio", "profile_image_url", "website_url", "graph_id",
	})
}

func TestEnrichHostsBatchOutcomes(t *testing.T) {
	store, mock := test.NewMockStore(t)

	srv := graphServer(t, func(vars map[string]string) string {
		switch vars["name"] {
		case "Terry Gross":
			return `{"data":{"creators":{"data":[{"pcid":"cr-1","name":"Terry Gross","bio":"b","imageUrl":"i","url":"u"}]}}}`
		case "Nobody Known":
			return `{"data":{"creators":{"data":[]}}}`
		default:
			return `{"data":null,"errors":[{"message":"search failed"}]}`
		}
	})
	defer srv.Close()

	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id IS NULL`).
		WithArgs(50).
		WillReturnRows(hostRows().
			AddRow(1, "Terry", "Gross", nil, nil, nil, nil).
			AddRow(2, "Nobody", "Known", nil, nil, nil, nil).
			AddRow(3, "Broken", "Search", nil, nil, nil, nil))
	mock.ExpectExec(`UPDATE hosts SET`).
		WithArgs(1, "cr-1", "b", "i", "u").
		WillReturnResult(sqlmock.NewResult(0, 1))

	res := resolver.New(store, nil, 0.85)
	e := New(store, graphClient(srv.URL), res, nil)

	report, err := e.EnrichHosts(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.NotFound)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Details, 3)
	assert.Equal(t, StatusUpdated, report.Details[0].Status)
	assert.Equal(t, "cr-1", report.Details[0].GraphID)
	assert.Equal(t, StatusNotFound, report.Details[1].Status)
	assert.Equal(t, StatusError, report.Details[2].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchPodcastsTakesFirstResult(t *testing.T) {
	store, mock := test.NewMockStore(t)

	srv := graphServer(t, func(vars map[string]string) string {
		assert.Equal(t, "111", vars["searchTerm"])
		return `{"data":{"podcasts":{"data":[
			{"id":"pod-1","title":"Radio Hour","webUrl":"https://web","imageUrl":"https://img"},
			{"id":"pod-2","title":"Radio Hour Rerun"}
		]}}}`
	})
	defer srv.Close()

	catalogID := "111"
	mock.ExpectQuery(`SELECT \* FROM podcasts WHERE graph_id IS NULL AND catalog_id IS NOT NULL`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"podcast_id", "title", "catalog_id"}).
			AddRow(7, "Radio Hour", catalogID))
	mock.ExpectExec(`UPDATE podcasts SET`).
		WithArgs(7, "pod-1", "https://web", "https://img").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := New(store, graphClient(srv.URL), resolver.New(store, nil, 0), nil)
	report, err := e.MatchPodcasts(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncCreditsSavesAppearances(t *testing.T) {
	store, mock := test.NewMockStore(t)

	srv := graphServer(t, func(vars map[string]string) string {
		assert.Equal(t, "ep-graph-1", vars["episodeId"])
		return `{"data":{"episode":{"credits":{"edges":[
			{"node":{"role":"guest","creator":{"id":"cr-1","name":"Ira Glass","bio":"b"}}},
			{"node":{"role":"host","creator":{"id":"cr-2","name":"Terry Gross"}}}
		]}}}}`
	})
	defer srv.Close()

	graphID := "ep-graph-1"
	mock.ExpectQuery(`SELECT e\.episode_id, e\.title`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"episode_id", "title", "graph_id", "catalog_id", "podcast_title", "podcast_catalog_id",
		}).AddRow(21, "Pilot", graphID, nil, "Radio Hour", nil))

	// Ira Glass is a guest, Terry Gross is not. Both graph ids are new.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("cr-1").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\)`).
		WithArgs("Ira", "Glass").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`INSERT INTO hosts`).
		WithArgs("Ira", "Glass", "b", nil, nil, "cr-1").
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(21, 4, true, "guest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("cr-2").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\)`).
		WithArgs("Terry", "Gross").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`INSERT INTO hosts`).
		WithArgs("Terry", "Gross", nil, nil, nil, "cr-2").
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(5))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(21, 5, false, "host").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := New(store, graphClient(srv.URL), resolver.New(store, nil, 0), nil)
	report, err := e.SyncCredits(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscoverGuestsExtractsAndLinks(t *testing.T) {
	store, mock := test.NewMockStore(t)

	srv := graphServer(t, func(vars map[string]string) string {
		return `{"data":{"creators":{"data":[{"pcid":"cr-9","name":"Jane Smith"}]}}}`
	})
	defer srv.Close()

	desc := "This week we are joined by Jane Smith."
	mock.ExpectQuery(`SELECT e\.episode_id, e\.title, e\.description`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "title", "description"}).
			AddRow(21, "Episode 12", desc).
			AddRow(22, "Quiet Episode", "nothing notable here"))

	// The name is unknown locally, so the directory is consulted.
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\)`).
		WithArgs("Jane", "Smith").
		WillReturnRows(hostRows())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE graph_id = \$1`).
		WithArgs("cr-9").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\)`).
		WithArgs("Jane", "Smith").
		WillReturnRows(hostRows())
	mock.ExpectQuery(`INSERT INTO hosts`).
		WithArgs("Jane", "Smith", nil, nil, nil, "cr-9").
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(6))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(21, 6, true, "Guest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := New(store, graphClient(srv.URL), resolver.New(store, nil, 0.85), nil)
	report, err := e.DiscoverGuests(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscoverGuestsSkipsSearchForKnownHost(t *testing.T) {
	store, mock := test.NewMockStore(t)

	srv := graphServer(t, func(vars map[string]string) string {
		t.Errorf("unexpected directory search for %q", vars["name"])
		return `{"data":{"creators":{"data":[]}}}`
	})
	defer srv.Close()

	mock.ExpectQuery(`SELECT e\.episode_id, e\.title, e\.description`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "title", "description"}).
			AddRow(21, "Episode 12", "This week we are joined by Jane Smith."))

	mock.ExpectQuery(`SELECT \* FROM hosts WHERE LOWER\(first_name\)`).
		WithArgs("Jane", "Smith").
		WillReturnRows(hostRows().AddRow(6, "Jane", "Smith", nil, nil, nil, "cr-9"))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO hosts`).
		WithArgs("Jane", "Smith", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"host_id"}).AddRow(6))
	mock.ExpectExec(`INSERT INTO episode_hosts`).
		WithArgs(21, 6, true, "Guest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := New(store, graphClient(srv.URL), resolver.New(store, nil, 0.85), nil)
	report, err := e.DiscoverGuests(context.Background(), 50)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRoleIgnoresCase(t *testing.T) {
	for _, role := range []string{"guest", "GUEST", "Interviewee", "FEATURED"} {
		assert.True(t, guestRole(role), role)
	}
	for _, role := range []string{"host", "Host", "producer", ""} {
		assert.False(t, guestRole(role), role)
	}
}
