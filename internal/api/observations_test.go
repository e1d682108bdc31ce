package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/psrio/internal/logger"
	"github.com/samcharles93/psrio/pkg/psrfits"
	"github.com/samcharles93/psrio/pkg/table"
	"github.com/samcharles93/psrio/pkg/tablefile"
)

func writeObservation(t *testing.T, dir, name string) {
	t.Helper()
	d := psrfits.NewDescriptor()
	d.Source = "J1939+2134"
	d.Observatory = "PKS"
	d.Instrument = "CASPSR"
	d.NrSubints = 1
	d.NrFreqChan = 2
	d.NrPols = 1
	d.NrBins = 4
	d.GenType = psrfits.Profile
	d.IsFolded = true
	d.FoldMode = psrfits.ModeFixed
	d.FixedPeriod = 0.00155
	d.TsampMode = psrfits.ModeFixed
	d.FixedTsamp = 0.00155 / 4
	d.TsubMode = psrfits.ModeList
	d.TsubList = []float64{60}
	d.FreqMode = psrfits.ModeFixed
	d.CentreFreq = 1400
	d.RefFreq = 1400
	d.Bandwidth = 64
	d.PolType = psrfits.PolStokes

	s := table.NewStore()
	f, err := psrfits.Create(s, d, psrfits.WriteOptions{Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.WriteData([]float64{0, 1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	if err := f.AddHistory("pam -T " + name); err != nil {
		t.Fatalf("AddHistory: %v", err)
	}
	if err := tablefile.Save(filepath.Join(dir, name), s, tablefile.SaveOptions{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func newTestEcho(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	dir := t.TempDir()
	writeObservation(t, dir, "a.ar")
	writeObservation(t, dir, "b.ar")
	store := NewObservationStore(dir, psrfits.ReadOptions{Logger: logger.Discard()})
	e := echo.New()
	NewServer(store).Register(e)
	return e, dir
}

func do(t *testing.T, e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %T: %v body=%s", out, err, rec.Body.String())
	}
	return out
}

type observationID struct {
	ID string `json:"id"`
}

func TestListAndGetObservation(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)

	rec := do(t, e, http.MethodGet, "/v1/observations")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decode[ObservationList](t, rec)
	if len(list.Data) != 2 || list.Data[0].Name != "a.ar" || list.Data[0].Loaded {
		t.Fatalf("list mismatch: %+v", list)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("missing request id header")
	}

	rec = do(t, e, http.MethodGet, "/v1/observations/a.ar")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		ID         string `json:"id"`
		Descriptor struct {
			Source  string `json:"source"`
			NrBins  int    `json:"nr_bins"`
			GenType string `json:"gentype"`
		} `json:"descriptor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(got.ID, "obs_") || got.Descriptor.Source != "J1939+2134" || got.Descriptor.NrBins != 4 {
		t.Fatalf("observation mismatch: %+v", got)
	}

	again := decode[observationID](t, do(t, e, http.MethodGet, "/v1/observations/a.ar"))
	if again.ID != got.ID {
		t.Fatalf("cached id mismatch: got %q want %q", again.ID, got.ID)
	}
	list = decode[ObservationList](t, do(t, e, http.MethodGet, "/v1/observations"))
	if !list.Data[0].Loaded || list.Data[1].Loaded {
		t.Fatalf("loaded flags mismatch: %+v", list.Data)
	}
}

func TestPulseAndHistory(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)

	rec := do(t, e, http.MethodGet, "/v1/observations/b.ar/pulse?chan=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("pulse status: got %d body=%s", rec.Code, rec.Body.String())
	}
	p := decode[PulseResponse](t, rec)
	want := []float64{4, 5, 6, 7}
	if len(p.Samples) != len(want) {
		t.Fatalf("samples mismatch: got %v want %v", p.Samples, want)
	}
	for i := range want {
		if d := p.Samples[i] - want[i]; d > 1e-3 || d < -1e-3 {
			t.Fatalf("sample %d mismatch: got %v want %v", i, p.Samples[i], want[i])
		}
	}

	h := decode[HistoryResponse](t, do(t, e, http.MethodGet, "/v1/observations/b.ar/history"))
	if len(h.Data) != 1 || h.Data[0].Command != "pam -T b.ar" {
		t.Fatalf("history mismatch: %+v", h)
	}
}

func TestObservationErrors(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)

	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/v1/observations/missing.ar", http.StatusNotFound},
		{http.MethodGet, "/v1/observations/..", http.StatusNotFound},
		{http.MethodGet, "/v1/observations/a.ar/pulse?chan=9", http.StatusBadRequest},
		{http.MethodGet, "/v1/observations/a.ar/pulse?start=-1", http.StatusBadRequest},
		{http.MethodGet, "/v1/observations/a.ar/pulse?start=2&count=5", http.StatusBadRequest},
		{http.MethodDelete, "/v1/observations/b.ar", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := do(t, e, tc.method, tc.path)
		if rec.Code != tc.status {
			t.Fatalf("%s %s status: got %d want %d body=%s", tc.method, tc.path, rec.Code, tc.status, rec.Body.String())
		}
	}
}

func TestEvictReloads(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t)

	first := decode[observationID](t, do(t, e, http.MethodGet, "/v1/observations/a.ar"))
	rec := do(t, e, http.MethodDelete, "/v1/observations/a.ar")
	if rec.Code != http.StatusOK {
		t.Fatalf("evict status: got %d body=%s", rec.Code, rec.Body.String())
	}
	second := decode[observationID](t, do(t, e, http.MethodGet, "/v1/observations/a.ar"))
	if second.ID == "" || second.ID == first.ID {
		t.Fatalf("expected a new id after evict: got %q and %q", first.ID, second.ID)
	}
}

func TestUnreadableFile(t *testing.T) {
	t.Parallel()
	e, dir := newTestEcho(t)
	if err := writeFile(filepath.Join(dir, "junk.ar"), "not a table file"); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := do(t, e, http.MethodGet, "/v1/observations/junk.ar")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}

func TestEvictedRecordNotFound(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeObservation(t, dir, "a.ar")
	store := NewObservationStore(dir, psrfits.ReadOptions{Logger: logger.Discard()})
	rec, err := store.Get(context.Background(), "a.ar")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !store.Evict("a.ar") {
		t.Fatalf("Evict returned false")
	}
	called := false
	err = rec.withFile(func(*psrfits.File) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNotFound) || called {
		t.Fatalf("withFile after evict: got err=%v called=%v want ErrNotFound", err, called)
	}
	if status, _ := statusOf(err); status != http.StatusNotFound {
		t.Fatalf("status mismatch: got %d want %d", status, http.StatusNotFound)
	}
}
