package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"history-service/model"
	"history-service/search"
	"history-service/store"
)

type fakeEventStore struct {
	groups   []model.EventGroup
	group    *model.EventGroup
	stats    []store.PartitionStats
	err      error
	upserted []string
}

func (f *fakeEventStore) All(ctx context.Context, language string) ([]model.EventGroup, error) {
	return f.groups, f.err
}

func (f *fakeEventStore) ByPeriod(ctx context.Context, language, periodName string) (*model.EventGroup, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.group, nil
}

func (f *fakeEventStore) UpsertEvent(ctx context.Context, language, bigEventName string, article *model.StructuredArticle) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, article.EventName)
	return nil
}

func (f *fakeEventStore) Stats(ctx context.Context) ([]store.PartitionStats, error) {
	return f.stats, f.err
}

type fakeSearcher struct {
	results []search.Result
	err     error
	lastQ   string
}

func (f *fakeSearcher) Search(ctx context.Context, query, language string) ([]search.Result, error) {
	f.lastQ = query
	if f.err != nil {
		return nil, f.err
	}
	if query == "" {
		return []search.Result{}, nil
	}
	return f.results, nil
}

func noopLookup(uid string) (model.Source, bool) {
	return model.Source{SourceUID: uid}, true
}

func newTestRouter(es *fakeEventStore, fs *fakeSearcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewEventsHandler(es, fs, noopLookup, nil)
	r.GET("/api/historical-events", h.GetAllEvents)
	r.GET("/api/historical-events/search", h.SearchEvents)
	r.GET("/api/historical-events/stats", h.GetStats)
	r.GET("/api/historical-events/:period", h.GetEventsByPeriod)
	r.POST("/api/historical-events/structure", h.StructureEvent)
	r.POST("/api/historical-events/structure-async", h.StructureEventAsync)
	return r
}

type envelope struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings json.RawMessage `json:"warnings"`
}

func TestGetAllEvents_Success(t *testing.T) {
	es := &fakeEventStore{groups: []model.EventGroup{{BigEventName: "Roman Period"}}}
	r := newTestRouter(es, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events?language=en", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "success", res.Status)

	var groups []model.EventGroup
	require.NoError(t, json.Unmarshal(res.Data, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Roman Period", groups[0].BigEventName)
}

func TestGetAllEvents_InvalidLanguage(t *testing.T) {
	es := &fakeEventStore{err: store.ErrInvalidLanguage}
	r := newTestRouter(es, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events?language=zz", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventsByPeriod_NotFound(t *testing.T) {
	es := &fakeEventStore{err: store.ErrPeriodNotFound}
	r := newTestRouter(es, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events/Unknown%20Period", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEvents_EmptyQueryIsNotAnError(t *testing.T) {
	fs := &fakeSearcher{}
	r := newTestRouter(&fakeEventStore{}, fs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events/search?language=en", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "success", res.Status)
	assert.JSONEq(t, "[]", string(res.Data))
}

func TestSearchEvents_ReturnsRankedResults(t *testing.T) {
	fs := &fakeSearcher{results: []search.Result{
		{Group: model.EventGroup{BigEventName: "Roman Invasion of Mauretania"}, Score: 15},
	}}
	r := newTestRouter(&fakeEventStore{}, fs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events/search?q=roman+invasion&language=en", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "roman invasion", fs.lastQ)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	var results []search.Result
	require.NoError(t, json.Unmarshal(res.Data, &results))
	require.Len(t, results, 1)
	assert.Equal(t, 15.0, results[0].Score)
}

func TestSearchEvents_CorpusUnavailable(t *testing.T) {
	fs := &fakeSearcher{err: search.ErrCorpusUnavailable}
	r := newTestRouter(&fakeEventStore{}, fs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events/search?q=roman", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStructureEvent_PersistsAndReturnsWarnings(t *testing.T) {
	es := &fakeEventStore{}
	r := newTestRouter(es, &fakeSearcher{})

	body := map[string]interface{}{
		"language":     "en",
		"bigEventName": "Roman Period",
		"draft": model.ArticleDraft{
			EventName:         "roman_invasion",
			RawText:           "# Title\n## Background\nRomans invaded.[1] Out of range.[9]",
			OrderedSourceUIDs: []string{"src-A"},
		},
	}
	payload, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/historical-events/structure", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"roman_invasion"}, es.upserted)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "success", res.Status)

	var warnings []map[string]string
	require.NoError(t, json.Unmarshal(res.Warnings, &warnings))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0]["message"], "out of range")
}

func TestStructureEvent_BadBody(t *testing.T) {
	r := newTestRouter(&fakeEventStore{}, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/historical-events/structure", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStructureEventAsync_NoPublisher(t *testing.T) {
	r := newTestRouter(&fakeEventStore{}, &fakeSearcher{})

	body, _ := json.Marshal(map[string]interface{}{
		"language":     "en",
		"bigEventName": "Roman Period",
		"draft":        model.ArticleDraft{EventName: "e", RawText: "x"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/historical-events/structure-async", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	es := &fakeEventStore{stats: []store.PartitionStats{{Language: "en", GroupCount: 2, EventCount: 7}}}
	r := newTestRouter(es, &fakeSearcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/historical-events/stats", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	var stats []store.PartitionStats
	require.NoError(t, json.Unmarshal(res.Data, &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, int64(7), stats[0].EventCount)
}
