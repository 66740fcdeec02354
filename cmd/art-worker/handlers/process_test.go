package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/security"
	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/worker"
	"github.com/kitgore/lyrictype-sub002/common/bootstrap"
	"github.com/kitgore/lyrictype-sub002/common/compress"
	"github.com/kitgore/lyrictype-sub002/common/logger"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

func newTestHandler(allowPrivate bool) *ProcessHandler {
	log := logger.New("error", "text")
	components := &bootstrap.Components{
		Logger: log,
	}
	processor := worker.New(log, 5*time.Second, 20<<20)
	return NewProcessHandler(components, processor, security.NewURLValidator(allowPrivate))
}

func doProcess(t *testing.T, h *ProcessHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ProcessImage(e.NewContext(req, rec)))
	return rec
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
}

func TestProcessImageSuccess(t *testing.T) {
	server := pngServer(t)
	defer server.Close()

	body := fmt.Sprintf(`{"url":%q,"key":"abc","mode":"grayscale"}`, server.URL+"/art.png")
	rec := doProcess(t, newTestHandler(true), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Width)
	assert.Equal(t, 2, resp.Height)
	assert.Equal(t, models.VersionGrayscale, resp.ProcessingVersion)

	plane, err := compress.DecodePayload(resp.ImageData, resp.CompressionMethod == models.CompressionDeflate)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255, 255}, plane)
}

func TestProcessImageRequiresURL(t *testing.T) {
	rec := doProcess(t, newTestHandler(true), `{"key":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "url is required")
}

func TestProcessImageBlocksUnsafeURL(t *testing.T) {
	rec := doProcess(t, newTestHandler(false), `{"url":"http://169.254.169.254/latest/meta-data","key":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "blocked")
}

func TestProcessImageRejectsUnknownMode(t *testing.T) {
	rec := doProcess(t, newTestHandler(true), `{"url":"http://127.0.0.1/a.png","mode":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown mode")
}

func TestProcessImageRejectsNegativeSize(t *testing.T) {
	rec := doProcess(t, newTestHandler(true), `{"url":"http://127.0.0.1/a.png","size":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "size")
}

func TestProcessImageFetchFailureMapsToBadGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	body := fmt.Sprintf(`{"url":%q,"key":"abc"}`, server.URL+"/a.png")
	rec := doProcess(t, newTestHandler(true), body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "jobId")
}

func TestProcessImageDecodeFailureMapsToUnprocessable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not pixels"))
	}))
	defer server.Close()

	body := fmt.Sprintf(`{"url":%q,"key":"abc"}`, server.URL+"/a.png")
	rec := doProcess(t, newTestHandler(true), body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
