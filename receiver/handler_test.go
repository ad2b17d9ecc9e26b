package receiver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"gentoostats/ingest"
	"gentoostats/orm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubIngestor implements the ingestor interface with a canned outcome.
// Used only for testing.
type stubIngestor struct {
	err  error
	body []byte
	meta ingest.Meta
}

func (s *stubIngestor) Process(_ context.Context, body []byte, meta ingest.Meta) (*orm.Submission, error) {
	s.body = body
	s.meta = meta
	if s.err != nil {
		return nil, s.err
	}
	return &orm.Submission{ID: 1}, nil
}

func post(router *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadSuccess(t *testing.T) {
	stub := &stubIngestor{}
	router := NewHandler(stub).Router()

	rec := post(router, "/upload", `{"PROTOCOL": 2}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Success", rec.Body.String())
	assert.Equal(t, `{"PROTOCOL": 2}`, string(stub.body))
}

func TestUploadTrailingSlash(t *testing.T) {
	stub := &stubIngestor{}
	router := NewHandler(stub).Router()

	rec := post(router, "/upload/", "{}", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRejected(t *testing.T) {
	stub := &stubIngestor{err: &ingest.RejectError{Reason: "Error: No protocol specified."}}
	router := NewHandler(stub).Router()

	rec := post(router, "/upload", "{}", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error: No protocol specified.", rec.Body.String())
}

// Internal errors must never leak their message to the client.
func TestUploadInternalError(t *testing.T) {
	stub := &stubIngestor{err: errors.New("pq: connection refused")}
	router := NewHandler(stub).Router()

	rec := post(router, "/upload", "{}", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, genericFailureBody, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestUploadForwardsMeta(t *testing.T) {
	stub := &stubIngestor{}
	router := NewHandler(stub).Router()

	post(router, "/upload", "{}", map[string]string{"X-Forwarded-For": "203.0.113.9"})

	assert.Equal(t, "203.0.113.9", stub.meta.ForwardedFor)
	assert.NotEmpty(t, stub.meta.ClientIP)
}

func TestUploadUnknownRoute(t *testing.T) {
	router := NewHandler(&stubIngestor{}).Router()

	rec := post(router, "/stats", "{}", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
