package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kentzo-Omakse/hexim/internal/batch"
	"github.com/Kentzo-Omakse/hexim/internal/models"
	"github.com/Kentzo-Omakse/hexim/mocks"
	"github.com/Kentzo-Omakse/hexim/pkg/middleware"
	"github.com/Kentzo-Omakse/hexim/pkg/redis"
	"github.com/Kentzo-Omakse/hexim/pkg/value"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	err      error
	debugged []int64
}

func (r *fakeRunner) RunOnce(context.Context) (*batch.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &batch.Result{Records: 2, Synced: 2, Upserted: 2}, nil
}

func (r *fakeRunner) RunSingle(_ context.Context, id int64) (*batch.Result, error) {
	r.debugged = append(r.debugged, id)
	return &batch.Result{Records: 1, Synced: 1}, nil
}

type fakeQueue struct {
	enqueued []value.Value
}

func (q *fakeQueue) Enqueue(_ context.Context, variation value.Value) (string, error) {
	q.enqueued = append(q.enqueued, variation)
	return "update-1", nil
}

type fakeSource map[int64]value.Value

func (s fakeSource) GetVariation(_ context.Context, id int64) (value.Value, bool, error) {
	v, ok := s[id]
	return v, ok, nil
}

type fakeMappingRepo struct {
	fields map[string]string
}

func (r *fakeMappingRepo) ListByType(_ context.Context, mappingType string) ([]models.MappingFieldOverride, error) {
	var out []models.MappingFieldOverride
	for sw, plenty := range r.fields {
		out = append(out, models.MappingFieldOverride{Type: mappingType, SwField: sw, PlentyField: plenty})
	}
	return out, nil
}

func (r *fakeMappingRepo) Set(_ context.Context, mappingType, swField, plentyField string) (*models.MappingFieldOverride, error) {
	r.fields[swField] = plentyField
	return &models.MappingFieldOverride{ID: "o-1", Type: mappingType, SwField: swField, PlentyField: plentyField}, nil
}

func (r *fakeMappingRepo) Delete(_ context.Context, _, swField string) error {
	delete(r.fields, swField)
	return nil
}

func newServer(runner *fakeRunner, queue *fakeQueue, source fakeSource, repo *fakeMappingRepo) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(mocks.Logger())
	g := e.Group("/api")
	NewSyncHandler(runner, runner, queue, source).RegisterRoutes(g)
	NewMappingFieldHandler(repo).RegisterRoutes(g)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSyncHandler(t *testing.T) {
	t.Run("should run a batch", func(t *testing.T) {
		e := newServer(&fakeRunner{}, &fakeQueue{}, nil, nil)
		rec := do(e, http.MethodPost, "/api/sync/run", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var result batch.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 2, result.Synced)
	})

	t.Run("should report a held lock as conflict", func(t *testing.T) {
		e := newServer(&fakeRunner{err: redis.ErrLockNotAcquired}, &fakeQueue{}, nil, nil)
		rec := do(e, http.MethodPost, "/api/sync/run", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("should debug a single variation", func(t *testing.T) {
		runner := &fakeRunner{}
		e := newServer(runner, &fakeQueue{}, nil, nil)
		rec := do(e, http.MethodPost, "/api/sync/debug/1004", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int64{1004}, runner.debugged)
	})

	t.Run("should reject a bad variation id", func(t *testing.T) {
		e := newServer(&fakeRunner{}, &fakeQueue{}, nil, nil)
		rec := do(e, http.MethodPost, "/api/sync/debug/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should enqueue a posted variation", func(t *testing.T) {
		queue := &fakeQueue{}
		e := newServer(&fakeRunner{}, queue, nil, nil)
		rec := do(e, http.MethodPost, "/api/updates", `{"id": 1004, "base": {"itemId": 100, "isMain": true}}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, queue.enqueued, 1)
		assert.Equal(t, int64(100), queue.enqueued[0].Get("base").Get("itemId").IntOr(0))

		var body EnqueueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, EnqueueResponse{ID: "update-1", VariationID: 1004}, body)
	})

	t.Run("should enqueue from the source", func(t *testing.T) {
		queue := &fakeQueue{}
		source := fakeSource{1004: value.Map(map[string]value.Value{"id": value.Int(1004)})}
		e := newServer(&fakeRunner{}, queue, source, nil)

		rec := do(e, http.MethodPost, "/api/updates/1004", "")
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, queue.enqueued, 1)

		rec = do(e, http.MethodPost, "/api/updates/2000", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Len(t, queue.enqueued, 1)
	})
}

func TestMappingFieldHandler(t *testing.T) {
	repo := &fakeMappingRepo{fields: map[string]string{}}
	e := newServer(&fakeRunner{}, &fakeQueue{}, nil, repo)

	rec := do(e, http.MethodPut, "/api/mapping-fields/ean", `{"plenty_field": "variationBarcodes.0.code"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "variationBarcodes.0.code", repo.fields["ean"])

	rec = do(e, http.MethodPut, "/api/mapping-fields/ean", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/mapping-fields", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.MappingFieldOverride
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, models.MappingTypeProduct, listed[0].Type)

	rec = do(e, http.MethodDelete, "/api/mapping-fields/ean", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.fields)
}
