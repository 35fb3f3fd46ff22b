package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/biomegen/internal/persistence"
	"github.com/talgya/biomegen/internal/session"
	"github.com/talgya/biomegen/internal/world"
)

const testKey = "secret"

func newTestServer(t *testing.T, db *persistence.DB) (*Server, *httptest.Server) {
	t.Helper()
	sess, err := session.New(context.Background(), world.SmallTestConfig(), 2)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	srv := &Server{Session: sess, DB: db, AdminKey: testKey, MapRatePerHour: 100}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && into != nil {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postControl(t *testing.T, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/control", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST control: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatus(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	var body struct {
		Episode  episodeSummary `json:"episode"`
		Backends []string       `json:"backends"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/status", &body); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	ep := srv.Session.Current()
	if body.Episode.ID != ep.ID.String() {
		t.Fatalf("episode id = %s, want %s", body.Episode.ID, ep.ID)
	}
	if body.Episode.Tiles != ep.Map.TileCount() || body.Episode.Width != 25 {
		t.Fatalf("tiles = %d width = %d", body.Episode.Tiles, body.Episode.Width)
	}
	if len(body.Backends) != 2 {
		t.Fatalf("backends = %v", body.Backends)
	}
}

func TestTile(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body struct {
		Sample world.TileSample `json:"sample"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/tile?x=0&y=0", &body); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body.Sample.Name == "" {
		t.Fatal("sample has no biome name")
	}

	for _, q := range []string{"", "?x=1", "?x=a&y=0", "?x=NaN&y=0", "?x=0&y=Inf"} {
		if code := getJSON(t, ts.URL+"/api/v1/tile"+q, nil); code != http.StatusBadRequest {
			t.Fatalf("tile%s code = %d, want 400", q, code)
		}
	}
}

func TestMapJSON(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	var body struct {
		Rows [][]tileEntry `json:"rows"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/map", &body); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	w := srv.Session.Current().Map.Grid.Width()
	if len(body.Rows) != w {
		t.Fatalf("rows = %d, want %d", len(body.Rows), w)
	}
	for i, row := range body.Rows {
		if len(row) != w {
			t.Fatalf("row %d has %d tiles, want %d", i, len(row), w)
		}
	}
	if first := body.Rows[0][0]; first.X != -12 || first.Y != -12 {
		t.Fatalf("first tile at (%d,%d), want (-12,-12)", first.X, first.Y)
	}
}

func TestMapZstd(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/map?format=zstd")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	width, cells, err := world.DecodeGrid(&buf)
	if err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
	m := srv.Session.Current().Map
	if width != m.Grid.Width() || len(cells) != m.TileCount() {
		t.Fatalf("width = %d cells = %d", width, len(cells))
	}
	for i, c := range cells {
		if int(c.Biome) != int(m.Tiles[i].Biome) {
			t.Fatalf("cell %d biome = %d, want %d", i, c.Biome, m.Tiles[i].Biome)
		}
	}
}

func TestMapRateLimited(t *testing.T) {
	sess, err := session.New(context.Background(), world.SmallTestConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}
	srv := &Server{Session: sess, MapRatePerHour: 2}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i := 0; i < 2; i++ {
		if code := getJSON(t, ts.URL+"/api/v1/map?format=zstd", nil); code != http.StatusOK {
			t.Fatalf("request %d code = %d", i, code)
		}
	}
	if code := getJSON(t, ts.URL+"/api/v1/map", nil); code != http.StatusTooManyRequests {
		t.Fatalf("third request code = %d, want 429", code)
	}

	// Rotating X-Forwarded-For from an untrusted peer does not buy new tokens.
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/map?format=zstd", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("X-Forwarded-For", "203.0.113."+strconv.Itoa(i+1))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("spoofed request %d code = %d, want 429", i, resp.StatusCode)
		}
	}
}

func TestStreamRowMessageCarriesIndex(t *testing.T) {
	b, err := json.Marshal(streamMsg{Type: "row", Row: 0, Tiles: []tileEntry{{}}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"row":0`) {
		t.Fatalf("row 0 message lacks its index: %s", b)
	}
}

func TestBiomes(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	var body struct {
		Biomes []struct {
			Biome string `json:"biome"`
			Count int    `json:"count"`
		} `json:"biomes"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/biomes", &body); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	total := 0
	for i, b := range body.Biomes {
		total += b.Count
		if i > 0 && b.Count > body.Biomes[i-1].Count {
			t.Fatalf("biomes not sorted by count: %v", body.Biomes)
		}
	}
	if total != srv.Session.Current().Map.TileCount() {
		t.Fatalf("histogram total = %d", total)
	}
}

func TestEpisodes(t *testing.T) {
	_, noDB := newTestServer(t, nil)
	if code := getJSON(t, noDB.URL+"/api/v1/episodes", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("no-db code = %d, want 503", code)
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "episodes.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	srv, ts := newTestServer(t, db)
	ep := srv.Session.Current()
	if err := db.SaveEpisode(persistence.Episode{
		ID:          ep.ID.String(),
		CreatedAt:   ep.CreatedAt,
		Config:      ep.Config,
		Tiles:       ep.Map.TileCount(),
		LandTiles:   ep.Map.LandTiles(),
		BiomeCounts: ep.Map.BiomeHistogram(),
	}); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}

	var body struct {
		Episodes []persistence.Episode `json:"episodes"`
	}
	if code := getJSON(t, ts.URL+"/api/v1/episodes?limit=5", &body); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(body.Episodes) != 1 || body.Episodes[0].ID != ep.ID.String() {
		t.Fatalf("episodes = %+v", body.Episodes)
	}
	if code := getJSON(t, ts.URL+"/api/v1/episodes?limit=0", nil); code != http.StatusBadRequest {
		t.Fatalf("limit=0 code = %d, want 400", code)
	}
}

func TestControlAuth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	if resp := postControl(t, ts.URL, "", `{"action":"zoom_in"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token code = %d, want 401", resp.StatusCode)
	}
	if resp := postControl(t, ts.URL, "wrong", `{"action":"zoom_in"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token code = %d, want 401", resp.StatusCode)
	}
	if code := getJSON(t, ts.URL+"/api/v1/control", nil); code != http.StatusMethodNotAllowed {
		t.Fatalf("GET control code = %d, want 405", code)
	}

	sess, err := session.New(context.Background(), world.SmallTestConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}
	open := httptest.NewServer((&Server{Session: sess}).Handler())
	defer open.Close()
	if resp := postControl(t, open.URL, testKey, `{"action":"zoom_in"}`); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("disabled admin code = %d, want 403", resp.StatusCode)
	}
}

func TestControlApply(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	before := srv.Session.Current()

	resp := postControl(t, ts.URL, testKey, `{"action":"zoom_in"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("zoom_in code = %d", resp.StatusCode)
	}
	var body struct {
		Changed bool           `json:"changed"`
		Episode episodeSummary `json:"episode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Changed || body.Episode.ID == before.ID.String() {
		t.Fatalf("zoom_in did not regenerate: %+v", body)
	}
	if body.Episode.Config.Zoom != before.Config.Zoom+session.ZoomStep {
		t.Fatalf("zoom = %v", body.Episode.Config.Zoom)
	}

	same := postControl(t, ts.URL, testKey, `{"action":"reseed","seed":`+itoa(body.Episode.Config.Seed)+`}`)
	var again struct {
		Changed bool `json:"changed"`
	}
	if err := json.NewDecoder(same.Body).Decode(&again); err != nil {
		t.Fatal(err)
	}
	if again.Changed {
		t.Fatal("reseed with the current seed regenerated")
	}

	if resp := postControl(t, ts.URL, testKey, `{"action":"spin"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown action code = %d, want 400", resp.StatusCode)
	}
	if resp := postControl(t, ts.URL, testKey, `not json`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad body code = %d, want 400", resp.StatusCode)
	}
}

func itoa(v uint32) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestStream(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() streamMsg {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var m streamMsg
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	first := read()
	if first.Type != "episode" || first.Episode == nil {
		t.Fatalf("first message = %+v", first)
	}
	width := srv.Session.Current().Map.Grid.Width()
	for row := 0; row < width; row++ {
		m := read()
		if m.Type != "row" || m.Row != row || len(m.Tiles) != width {
			t.Fatalf("row message %d = type %q row %d tiles %d", row, m.Type, m.Row, len(m.Tiles))
		}
	}
	if done := read(); done.Type != "done" {
		t.Fatalf("expected done, got %q", done.Type)
	}

	ep, changed, err := srv.Session.Apply(context.Background(), session.Action{Kind: session.PanRight})
	if err != nil || !changed {
		t.Fatalf("Apply: changed=%v err=%v", changed, err)
	}
	next := read()
	if next.Type != "episode" || next.Episode == nil || next.Episode.ID != ep.ID.String() {
		t.Fatalf("regeneration message = %+v", next)
	}
}
