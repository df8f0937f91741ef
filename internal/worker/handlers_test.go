package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"podgraph/internal/catalog"
	"podgraph/internal/crawler"
	"podgraph/internal/feedparse"
	"podgraph/internal/resolver"
	"podgraph/internal/test"
	"podgraph/pkg/tasks"
)

func mustMarshal(t *testing.T, v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return b
}

func TestHandleCrawlDueTask(t *testing.T) {
	store, mock := test.NewMockStore(t)
	mockEnqueuer := &test.MockTaskEnqueuer{}

	mock.ExpectQuery(`SELECT catalog_id\s+FROM podcast_tracking`).
		WithArgs("in_progress", 24*3600, 25).
		WillReturnRows(sqlmock.NewRows([]string{"catalog_id"}).AddRow("111").AddRow("222"))
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "in_progress", "success", "failed", "total_episodes"}).
			AddRow(2, 2, 0, 0, 0, 0))

	handler := NewTaskHandler(store, nil, nil, nil, mockEnqueuer, DefaultConfig())
	task := asynq.NewTask(tasks.TypeCrawlDue, nil)

	err := handler.HandleCrawlDueTask(context.Background(), task)
	assert.NoError(t, err)
	assert.Len(t, mockEnqueuer.EnqueuedTasks, 2)
	assert.Equal(t, tasks.TypeCrawlPodcast, mockEnqueuer.EnqueuedTasks[0].Type())

	var payload tasks.CrawlPodcastTaskPayload
	err = json.Unmarshal(mockEnqueuer.EnqueuedTasks[0].Payload(), &payload)
	assert.NoError(t, err)
	assert.Equal(t, "111", payload.CatalogID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCrawlPodcastTaskSkipsUnclaimed(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("111", "in_progress", 30*60).
		WillReturnResult(sqlmock.NewResult(0, 0)) // another worker holds the lease

	handler := NewTaskHandler(store, nil, nil, nil, nil, DefaultConfig())
	task := asynq.NewTask(tasks.TypeCrawlPodcast,
		mustMarshal(t, tasks.CrawlPodcastTaskPayload{CatalogID: "111"}))

	err := handler.HandleCrawlPodcastTask(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCrawlPodcastTaskMarksFailed(t *testing.T) {
	store, mock := test.NewMockStore(t)

	// A catalog that never answers makes the crawl fail after the claim.
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer catalogSrv.Close()

	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("111", "in_progress", 30*60).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("111", "failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := crawler.New(store, catalog.NewClient(catalogSrv.URL), feedparse.New(), resolver.New(store, nil, 0))
	handler := NewTaskHandler(store, c, nil, nil, nil, DefaultConfig())
	task := asynq.NewTask(tasks.TypeCrawlPodcast,
		mustMarshal(t, tasks.CrawlPodcastTaskPayload{CatalogID: "111"}))

	err := handler.HandleCrawlPodcastTask(context.Background(), task)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCrawlPodcastTaskSuccess(t *testing.T) {
	store, mock := test.NewMockStore(t)

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Radio Hour</title></channel></rss>`)
	}))
	defer feedSrv.Close()
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("entity") {
		case "podcast":
			fmt.Fprintf(w, `{"resultCount":1,"results":[{"collectionName":"Radio Hour","feedUrl":%q,"trackId":111}]}`, feedSrv.URL)
		case "podcastEpisode":
			fmt.Fprint(w, `{"resultCount":1,"results":[{"trackName":"Radio Hour","trackId":111}]}`)
		}
	}))
	defer catalogSrv.Close()

	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("111", "in_progress", 30*60).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM podcasts WHERE catalog_id = \$1`).
		WithArgs("111").
		WillReturnRows(sqlmock.NewRows([]string{"podcast_id", "title", "catalog_id"}).
			AddRow(7, "Radio Hour", "111"))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM podcasts WHERE title = \$1`).
		WithArgs("Radio Hour").
		WillReturnRows(sqlmock.NewRows([]string{"podcast_id", "title", "catalog_id"}).
			AddRow(7, "Radio Hour", "111"))
	mock.ExpectQuery(`INSERT INTO podcasts`).
		WillReturnRows(sqlmock.NewRows([]string{"podcast_id"}).AddRow(7))
	mock.ExpectCommit()
	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("111", "success", 0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := crawler.New(store, catalog.NewClient(catalogSrv.URL), feedparse.New(), resolver.New(store, nil, 0))
	handler := NewTaskHandler(store, c, nil, nil, nil, DefaultConfig())
	task := asynq.NewTask(tasks.TypeCrawlPodcast,
		mustMarshal(t, tasks.CrawlPodcastTaskPayload{CatalogID: "111"}))

	err := handler.HandleCrawlPodcastTask(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleReclaimLeasesTask(t *testing.T) {
	store, mock := test.NewMockStore(t)

	mock.ExpectExec(`UPDATE podcast_tracking SET`).
		WithArgs("in_progress", "failed").
		WillReturnResult(sqlmock.NewResult(0, 2))

	handler := NewTaskHandler(store, nil, nil, nil, nil, DefaultConfig())
	err := handler.HandleReclaimLeasesTask(context.Background(), asynq.NewTask(tasks.TypeReclaimLeases, nil))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCrawlPodcastTaskBadPayload(t *testing.T) {
	handler := NewTaskHandler(nil, nil, nil, nil, nil, DefaultConfig())
	err := handler.HandleCrawlPodcastTask(context.Background(),
		asynq.NewTask(tasks.TypeCrawlPodcast, []byte("not json")))
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	h := NewTaskHandler(nil, nil, nil, nil, nil, Config{})
	assert.Equal(t, 24*time.Hour, h.cfg.MinInterval)
	assert.Equal(t, 30*time.Minute, h.cfg.LeaseTTL)
	assert.Equal(t, 25, h.cfg.CrawlBatch)
	assert.Equal(t, 50, h.cfg.EnrichBatch)
}
