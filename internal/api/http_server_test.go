package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/repository"
	"github.com/abelzeko/ecms-bot/internal/uploads"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

func newTestServer(t *testing.T, opts ServerOptions) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	repo, err := repository.NewObservationRepository(repository.DriverSQLite3, filepath.Join(dir, "ecms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() }) //nolint:errcheck

	store := uploads.NewStore(filepath.Join(dir, "uploads"))
	uc := usecases.NewMonitoringUseCase(repo, store, nil)

	srv, err := NewServer(uc, store, opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getDocument(t *testing.T, rawURL string) *goquery.Document {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func postForm(t *testing.T, rawURL string, values url.Values) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := http.PostForm(rawURL, values)
	require.NoError(t, err)
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func multipartImage(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func metricValue(doc *goquery.Document, kind string) string {
	return strings.TrimSpace(doc.Find(`#metrics .metric[data-kind="` + kind + `"] .value`).Text())
}

func TestDashboardCounts(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	doc := getDocument(t, ts.URL+"/")
	for _, kind := range []string{"waste", "drainage", "chemical", "forest"} {
		assert.Equal(t, "0", metricValue(doc, kind), kind)
	}
	assert.Equal(t, "Dashboard", strings.TrimSpace(doc.Find("nav a.active").Text()))

	resp, _ := postForm(t, ts.URL+"/chemical", url.Values{"chemical_name": {"HCl"}, "ph": {"1.5"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"0.5"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"-0.2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc = getDocument(t, ts.URL+"/")
	assert.Equal(t, "0", metricValue(doc, "waste"))
	assert.Equal(t, "0", metricValue(doc, "drainage"))
	assert.Equal(t, "1", metricValue(doc, "chemical"))
	assert.Equal(t, "2", metricValue(doc, "forest"))
}

func TestDrainageSubmit(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	resp, doc := postForm(t, ts.URL+"/drainage", url.Values{
		"location":    {"9.0820, 8.6753"},
		"flow_status": {"blocked"},
		"population":  {"2000"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, doc.Find(".result").Text(), "High (score 90.0)")

	resp, doc = postForm(t, ts.URL+"/drainage", url.Values{
		"location":    {"Market road"},
		"flow_status": {"normal"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// population defaults to 1000
	assert.Contains(t, doc.Find(".result").Text(), "Low (score 20.0)")

	rows := doc.Find("#records tr").Slice(1, goquery.ToEnd)
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, "9.082", strings.TrimSpace(rows.Eq(0).Find("td").Eq(2).Text()))
	assert.Equal(t, "blocked / High", strings.TrimSpace(rows.Eq(0).Find("td").Eq(4).Text()))
	assert.True(t, rows.Eq(1).HasClass("unlocated"))
	assert.Equal(t, "6.5244", strings.TrimSpace(rows.Eq(1).Find("td").Eq(2).Text()))
}

func TestDrainageSubmitRejectsUnknownFlow(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	resp, doc := postForm(t, ts.URL+"/drainage", url.Values{
		"location":    {"x"},
		"flow_status": {"flooded"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, doc.Find(".error").Text())

	doc = getDocument(t, ts.URL+"/")
	assert.Equal(t, "0", metricValue(doc, "drainage"))
}

func TestChemicalSubmitDefaultsPH(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	resp, doc := postForm(t, ts.URL+"/chemical?records=1", url.Values{"chemical_name": {"Bleach"}, "ph": {""}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, doc.Find(".result").Text(), heuristics.GuidanceStandard)

	rows := doc.Find("#records tr").Slice(1, goquery.ToEnd)
	require.Equal(t, 1, rows.Length())
	assert.Contains(t, rows.Text(), "Bleach")
}

func TestSubmitNonFiniteNumbersUseDefaults(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	for _, ph := range []string{"Inf", "NaN", "-infinity", "0x1p3"} {
		resp, doc := postForm(t, ts.URL+"/chemical", url.Values{"chemical_name": {"Mystery"}, "ph": {ph}})
		require.Equal(t, http.StatusOK, resp.StatusCode, ph)
		assert.Contains(t, doc.Find(".result").Text(), heuristics.GuidanceStandard, ph)
	}
	resp, doc := postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"nan"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, doc.Find(".result").Text(), "0.30")

	resp, doc = postForm(t, ts.URL+"/drainage", url.Values{"location": {"x"}, "flow_status": {"slow"}, "population": {"+Inf"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, doc.Find(".result").Text(), "Low (score 20.0)")

	records, err := http.Get(ts.URL + "/api/records/chemical")
	require.NoError(t, err)
	defer records.Body.Close()
	require.Equal(t, http.StatusOK, records.StatusCode)

	var payload struct {
		Records []struct {
			PHLevel float64 `json:"ph_level"`
		} `json:"records"`
	}
	require.NoError(t, json.NewDecoder(records.Body).Decode(&payload))
	require.Len(t, payload.Records, 4)
	for _, r := range payload.Records {
		assert.Equal(t, 7.0, r.PHLevel)
	}
}

func TestWriteJSON_EncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"ph": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"encoding failed"}`, rec.Body.String())
}

func TestWasteSubmitAndServeUpload(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	body, contentType := multipartImage(t, "leaf.png", solidPNG(t, color.RGBA{R: 10, G: 200, B: 10, A: 255}))
	resp, err := http.Post(ts.URL+"/waste", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".result").Text(), heuristics.ActionCompost)

	src, ok := doc.Find("main img").Attr("src")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(src, "-leaf.png"))

	img, err := http.Get(ts.URL + src)
	require.NoError(t, err)
	defer img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	_, err = png.Decode(img.Body)
	assert.NoError(t, err)
}

func TestWasteSubmitRejectsNonImage(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	body, contentType := multipartImage(t, "notes.txt", []byte("definitely not an image"))
	resp, err := http.Post(ts.URL+"/waste", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	doc := getDocument(t, ts.URL+"/")
	assert.Equal(t, "0", metricValue(doc, "waste"))
}

func TestUploadNotFound(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	resp, err := http.Get(ts.URL + "/uploads/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordsAPI(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	_, _ = postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"0.1"}})

	resp, err := http.Get(ts.URL + "/api/records/forest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Kind    string `json:"kind"`
		Records []struct {
			ID              int64   `json:"id"`
			VegetationIndex float64 `json:"vegetation_index"`
			AlertLevel      string  `json:"alert_level"`
		} `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "forest", payload.Kind)
	require.Len(t, payload.Records, 1)
	assert.Equal(t, 0.1, payload.Records[0].VegetationIndex)
	assert.Equal(t, "At Risk", payload.Records[0].AlertLevel)

	missing, err := http.Get(ts.URL + "/api/records/volcano")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	counts, err := http.Get(ts.URL + "/api/counts")
	require.NoError(t, err)
	defer counts.Body.Close()
	raw, err := io.ReadAll(counts.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"waste":0,"drainage":0,"chemical":0,"forest":1}`, string(raw))
}

func TestDrainageMarkersGeoJSON(t *testing.T) {
	ts := newTestServer(t, ServerOptions{MapZoom: 7})

	_, _ = postForm(t, ts.URL+"/drainage", url.Values{"location": {"9.0820,8.6753"}, "flow_status": {"slow"}})
	_, _ = postForm(t, ts.URL+"/drainage", url.Values{"location": {"somewhere"}, "flow_status": {"stagnant"}})
	_, _ = postForm(t, ts.URL+"/drainage", url.Values{"location": {"nan,inf"}, "flow_status": {"normal"}})

	resp, err := http.Get(ts.URL + "/api/drainage/markers")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "6.5244,3.3792", resp.Header.Get("X-Map-Center"))
	assert.Equal(t, "7", resp.Header.Get("X-Map-Zoom"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)

	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{8.6753, 9.082}, fc.Features[0].Geometry.Coordinates)
	assert.Equal(t, "slow / Low", fc.Features[0].Properties["popup"])
	assert.Equal(t, true, fc.Features[0].Properties["located"])

	assert.Equal(t, []float64{3.3792, 6.5244}, fc.Features[1].Geometry.Coordinates)
	assert.Equal(t, false, fc.Features[1].Properties["located"])

	// non-finite coordinates are treated as unparsable
	assert.Equal(t, []float64{3.3792, 6.5244}, fc.Features[2].Geometry.Coordinates)
	assert.Equal(t, false, fc.Features[2].Properties["located"])
	assert.Equal(t, "nan,inf", fc.Features[2].Properties["location"])
}

func TestSubmitRateLimited(t *testing.T) {
	ts := newTestServer(t, ServerOptions{SubmitRate: 0.001, SubmitBurst: 1})

	first, _ := postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"0.4"}})
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.PostForm(ts.URL+"/forest", url.Values{"ndvi": {"0.4"}})
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	// reads are never limited
	getDocument(t, ts.URL+"/forest")
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, ServerOptions{})

	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	_, _ = postForm(t, ts.URL+"/forest", url.Values{"ndvi": {"0.9"}})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `ecms_evaluations_total{kind="forest",label="Healthy"}`)
}
