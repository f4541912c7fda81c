package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mahlzeit/foodsearch"
	"mahlzeit/models"
)

func TestShouldSearch(t *testing.T) {
	cases := map[string]bool{
		"ab":         false,
		"Brot":       false,
		"a b":        true,
		"Apfel":      true,
		"  ab  ":     false,
		"Ei":         false,
		"Müsli":      true,
		"rote Beete": true,
	}
	for q, want := range cases {
		assert.Equal(t, want, ShouldSearch(q), q)
	}
}

func TestParseCandidate(t *testing.T) {
	c, ok := ParseCandidate("Hier sind die Werte:\n```json\n{\"name\":\"Banane\",\"sourceName\":\"BLS\",\"nutritionUnit\":\"1 Stück\",\"calories\":\"105\",\"protein\":1.3,\"carbs\":\"27,0\",\"fat\":-2}\n```")
	require.True(t, ok)
	assert.Equal(t, "Banane", c.Name)
	assert.Equal(t, models.PerPiece, c.NutritionUnit)
	assert.Equal(t, 105.0, c.Calories)
	assert.Equal(t, 1.3, c.Protein)
	assert.Equal(t, 27.0, c.Carbs)
	assert.Equal(t, 0.0, c.Fat)

	c, ok = ParseCandidate(`{"name":"Milch","sourceName":"x","nutritionUnit":"pro Glas","calories":"viel","protein":null}`)
	require.True(t, ok)
	assert.Equal(t, models.Per100g, c.NutritionUnit)
	assert.Zero(t, c.Calories)
	assert.Zero(t, c.Protein)

	for _, raw := range []string{
		`{"sourceName":"x","calories":1}`,
		`{"name":"Milch","sourceName":"  "}`,
		`{"name":42,"sourceName":"x"}`,
		`keine Ahnung`,
		`{"name": "Brot",`,
		`} {`,
	} {
		_, ok := ParseCandidate(raw)
		assert.False(t, ok, raw)
	}
}

type fakeGen struct {
	mu     sync.Mutex
	reply  string
	err    error
	block  bool
	calls  int32
	image  []byte
	prompt string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string, img []byte, _ string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.prompt, f.image = prompt, img
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return `{"name":"zu spät","sourceName":"x"}`, nil
	}
	return f.reply, f.err
}

type fakeFoods struct {
	hits []foodsearch.Hit
	err  error
}

func (f fakeFoods) Search(context.Context, string, int) (*foodsearch.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &foodsearch.Page{Hits: f.hits, Page: 1}, nil
}

func newService(gen Generator, foods FoodSearcher) *Service {
	return NewService(NewProvider(func() (Generator, error) { return gen, nil }), foods, nil)
}

func TestLookupText(t *testing.T) {
	gen := &fakeGen{reply: `{"name":"Apfel","sourceName":"BLS","nutritionUnit":"100g","calories":52}`}
	svc := newService(gen, nil)

	res := svc.LookupText(context.Background(), "Apfel")
	require.NotNil(t, res.Candidate)
	assert.Equal(t, 52.0, res.Candidate.Calories)
	assert.False(t, res.Fallback)
	assert.Contains(t, gen.prompt, `"Apfel"`)

	res = svc.LookupText(context.Background(), "Ei")
	assert.Nil(t, res.Candidate)
	assert.EqualValues(t, 1, atomic.LoadInt32(&gen.calls))
}

func TestLookupTextTimeoutIsNoResult(t *testing.T) {
	svc := newService(&fakeGen{block: true}, nil)
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	res := svc.LookupText(context.Background(), "Linsensuppe")
	assert.Nil(t, res.Candidate)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLookupTextFallsBackToFoodDatabase(t *testing.T) {
	foods := fakeFoods{hits: []foodsearch.Hit{{Name: "Vollmilch", Brand: "Hof", NutritionUnit: models.Per100ml, Calories: 64}}}
	svc := newService(&fakeGen{reply: "Das weiß ich nicht."}, foods)

	res := svc.LookupText(context.Background(), "Vollmilch")
	require.NotNil(t, res.Candidate)
	assert.True(t, res.Fallback)
	assert.Equal(t, "Vollmilch (Hof)", res.Candidate.Name)
	assert.Equal(t, models.Per100ml, res.Candidate.NutritionUnit)

	svc = newService(&fakeGen{err: errors.New("quota")}, fakeFoods{err: errors.New("down")})
	assert.Nil(t, svc.LookupText(context.Background(), "Vollmilch").Candidate)
}

func TestUnavailable(t *testing.T) {
	svc := NewService(NewProvider(func() (Generator, error) { return nil, ErrNoAPIKey }), nil, nil)
	assert.False(t, svc.Available())
	assert.Nil(t, svc.LookupText(context.Background(), "Apfelkuchen").Candidate)

	_, err := NewGemini("", "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)

	h := NewHandlers(svc)
	rec := httptest.NewRecorder()
	h.Text(rec, httptest.NewRequest(http.MethodGet, "/lookup/text?q=Apfelkuchen", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":false,"result":null}`, rec.Body.String())
}

func TestProviderBuildsOnce(t *testing.T) {
	var builds int32
	p := NewProvider(func() (Generator, error) {
		atomic.AddInt32(&builds, 1)
		return &fakeGen{}, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, p.Available())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, builds)
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestScanLabel(t *testing.T) {
	gen := &fakeGen{reply: `{"name":"Joghurt","sourceName":"Etikett","nutritionUnit":"100g","calories":61,"protein":3.5}`}
	svc := newService(gen, nil)

	res := svc.ScanLabel(context.Background(), pngImage(t, 2000, 1000))
	require.NotNil(t, res.Candidate)
	assert.Equal(t, LabelSourceName, res.Candidate.SourceName)
	assert.Equal(t, 61.0, res.Candidate.Calories)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(gen.image))
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Width)
	assert.Equal(t, 512, cfg.Height)

	// invalid answers are discarded before the source is replaced
	gen.reply = `{"sourceName":"Etikett","calories":61}`
	assert.Nil(t, svc.ScanLabel(context.Background(), pngImage(t, 10, 10)).Candidate)

	assert.Nil(t, svc.ScanLabel(context.Background(), []byte("kein Bild")).Candidate)
}

func TestLabelHandler(t *testing.T) {
	gen := &fakeGen{reply: `{"name":"Joghurt","sourceName":"Etikett","calories":61}`}
	h := NewHandlers(newService(gen, nil))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "label.png")
	require.NoError(t, err)
	_, err = part.Write(pngImage(t, 50, 50))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/lookup/label", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Label(rec, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Available bool       `json:"available"`
		Result    *Candidate `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Available)
	require.NotNil(t, out.Result)
	assert.Equal(t, LabelSourceName, out.Result.SourceName)

	rec = httptest.NewRecorder()
	h.Label(rec, httptest.NewRequest(http.MethodPost, "/lookup/label", strings.NewReader("")), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDebouncerRunsLastOnly(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var mu sync.Mutex
	var ran []int
	done := make(chan struct{})

	for i := 1; i <= 3; i++ {
		i := i
		d.Schedule(context.Background(), func(ctx context.Context) {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
			close(done)
		})
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced task never ran")
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, ran)
}

func TestTaskCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var ran int32
	task := d.Schedule(context.Background(), func(context.Context) { atomic.StoreInt32(&ran, 1) })
	task.Cancel()
	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))

	// cancelling a running task cancels its context
	started := make(chan struct{})
	stopped := make(chan struct{})
	task = d.Schedule(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(stopped)
	})
	<-started
	task.Cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("running task not cancelled")
	}
}

func TestLiveSearch(t *testing.T) {
	gen := &fakeGen{reply: `{"name":"Apfelstrudel","sourceName":"BLS","calories":274}`}
	h := NewHandlers(newService(gen, nil))
	h.delay = 30 * time.Millisecond

	router := httprouter.New()
	router.GET("/ws/lookup", h.LiveSearch)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/lookup", nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, q := range []string{"Ap", "Apfe", "Apfel", "Apfelst"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(q)))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply liveReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Apfelst", reply.Query)
	assert.True(t, reply.Available)
	require.NotNil(t, reply.Result)
	assert.Equal(t, "Apfelstrudel", reply.Result.Name)
	assert.EqualValues(t, 1, atomic.LoadInt32(&gen.calls))
}
