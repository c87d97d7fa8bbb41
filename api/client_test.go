package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testProfileJSON = `{
	"profile": {
		"personaname": "Dendi",
		"steamid": "76561198031118062",
		"avatarfull": "https://avatars.example/full.jpg"
	},
	"mmr_estimate": {"estimate": 5400}
}`

func newTestClient(t *testing.T, handler http.Handler, options ...Option) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	options = append([]Option{WithBaseURL(server.URL)}, options...)
	client := New(options...)
	if !client.IsValid() {
		t.Fatalf("client configuration invalid: %v", client.ValidationError())
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		option Option
	}{
		{"zero rate limit", WithRateLimit(0)},
		{"zero cache capacity", WithCache(0, time.Minute)},
		{"zero inflight slots", WithMaxInflight(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.option)
			if client.IsValid() {
				t.Fatal("IsValid() = true for invalid configuration")
			}
			var apiErr *Error
			if !errors.As(client.ValidationError(), &apiErr) || apiErr.Type != ErrorTypeConfig {
				t.Errorf("ValidationError() = %v, want Config error", client.ValidationError())
			}
			if _, err := client.Profile(context.Background(), 1); !errors.Is(err, client.ValidationError()) {
				t.Errorf("lookup on invalid client = %v, want the validation error", err)
			}
		})
	}
}

func TestProfileDecodesPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/players/70388657" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, testProfileJSON)
	}))

	player, err := client.Profile(context.Background(), 70388657)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if player.Profile == nil || player.Profile.Personaname != "Dendi" {
		t.Errorf("Profile = %+v, want personaname Dendi", player.Profile)
	}
	if player.MMREstimate == nil || player.MMREstimate.Estimate != 5400 {
		t.Errorf("MMREstimate = %+v, want 5400", player.MMREstimate)
	}
	if got := player.Profile.AvatarURL(); got != "https://avatars.example/full.jpg" {
		t.Errorf("AvatarURL() = %q", got)
	}
}

func TestRepeatLookupServedFromCache(t *testing.T) {
	var hits int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, testProfileJSON)
	}))

	first, err := client.Profile(context.Background(), 1)
	if err != nil {
		t.Fatalf("first Profile failed: %v", err)
	}
	second, err := client.Profile(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Profile failed: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("upstream hit %d times, want 1", got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestExpiredEntryRefetched(t *testing.T) {
	var hits int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, testProfileJSON)
	}), WithCache(8, 30*time.Millisecond))

	if _, err := client.Profile(context.Background(), 1); err != nil {
		t.Fatalf("first Profile failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := client.Profile(context.Background(), 1); err != nil {
		t.Fatalf("second Profile failed: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("upstream hit %d times, want 2 after TTL expiry", got)
	}
}

func TestConcurrentIdenticalLookupsCoalesce(t *testing.T) {
	var hits int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, testProfileJSON)
	}))

	const callers = 6
	results := make([]*PlayerResponse, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Profile(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("upstream hit %d times for %d concurrent identical lookups, want 1", got, callers)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if !reflect.DeepEqual(results[i], results[0]) {
			t.Errorf("caller %d got a different result", i)
		}
	}
}

func TestCoalescedCallersShareFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Profile(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeServer {
			t.Errorf("caller %d error = %v, want Server error", i, err)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType string
	}{
		{
			"not found",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			ErrorTypeNotFound,
		},
		{
			"remote rate limited",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			ErrorTypeRateLimited,
		},
		{
			"server failure",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			ErrorTypeServer,
		},
		{
			"malformed body",
			func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"profile": [not json`) },
			ErrorTypeParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.Profile(context.Background(), 1)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("Profile error = %v, want *Error", err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", apiErr.Type, tt.wantType)
			}
		})
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(WithBaseURL(server.URL))
	_, err := client.Profile(context.Background(), 1)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeNetwork {
		t.Errorf("error against closed server = %v, want Network error", err)
	}
}

func TestTimeoutClassification(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}), WithHTTPClient(&http.Client{Timeout: 30 * time.Millisecond}))

	_, err := client.Profile(context.Background(), 1)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeTimeout {
		t.Errorf("error against slow server = %v, want Timeout error", err)
	}
}

func TestFailedLookupNotCached(t *testing.T) {
	var hits int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, testProfileJSON)
	}))

	if _, err := client.Profile(context.Background(), 1); err == nil {
		t.Fatal("first Profile should fail")
	}
	if _, err := client.Profile(context.Background(), 1); err != nil {
		t.Fatalf("second Profile failed: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("upstream hit %d times, want 2 (failures are not cached)", got)
	}
}

func TestConcurrentCallsRespectInflightBound(t *testing.T) {
	var inFlight, maxInFlight int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			max := atomic.LoadInt64(&maxInFlight)
			if cur <= max || atomic.CompareAndSwapInt64(&maxInFlight, max, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		fmt.Fprint(w, testProfileJSON)
	}), WithMaxInflight(2))

	var wg sync.WaitGroup
	for i := uint32(1); i <= 6; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			if _, err := client.Profile(context.Background(), id); err != nil {
				t.Errorf("Profile(%d) failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&maxInFlight); got > 2 {
		t.Errorf("observed %d simultaneous upstream calls, bound is 2", got)
	}
}

func TestRecentMatchesFallsBackToMatches(t *testing.T) {
	matchesJSON := `[{"match_id": 7000000001, "player_slot": 1, "radiant_win": true, "hero_id": 74, "kills": 12, "deaths": 3, "assists": 9}]`
	var fallbackQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/1/recentMatches":
			w.WriteHeader(http.StatusInternalServerError)
		case "/players/1/matches":
			fallbackQuery = r.URL.RawQuery
			fmt.Fprint(w, matchesJSON)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	matches, err := client.RecentMatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentMatches failed: %v", err)
	}
	if len(matches) != 1 || matches[0].MatchID != 7000000001 {
		t.Errorf("matches = %+v", matches)
	}
	if !matches[0].Won() {
		t.Error("radiant slot with radiant_win should count as a win")
	}
	if fallbackQuery != "limit=20&significant=0" {
		t.Errorf("fallback query = %q, want limit=20&significant=0", fallbackQuery)
	}
}

func TestRecentMatchesReturnsPrimaryErrorWhenFallbackFails(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players/1/recentMatches":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	_, err := client.RecentMatches(context.Background(), 1)
	if !IsNotFound(err) {
		t.Errorf("error = %v, want the primary NotFound error", err)
	}
}

func TestHeroesMapsIDToLocalizedName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/heroStats" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `[{"id": 1, "localized_name": "Anti-Mage"}, {"id": 74, "localized_name": "Invoker"}]`)
	}))

	heroes, err := client.Heroes(context.Background())
	if err != nil {
		t.Fatalf("Heroes failed: %v", err)
	}
	want := map[int]string{1: "Anti-Mage", 74: "Invoker"}
	if !reflect.DeepEqual(heroes, want) {
		t.Errorf("Heroes = %v, want %v", heroes, want)
	}
}

func TestItemConstantsDropPlaceholderRows(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"blink": {"id": 1, "img": "/apps/dota2/images/items/blink_lg.png"},
			"recipe_unused": {"id": 0, "img": ""}
		}`)
	}))

	items, err := client.ItemConstants(context.Background())
	if err != nil {
		t.Fatalf("ItemConstants failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ItemConstants kept %d entries, want 1", len(items))
	}
	if items[1].Img == "" {
		t.Error("blink entry lost its image path")
	}
}

func TestImageBytesCoalescesConcurrentFetches(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	var hits int64
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write(payload)
	}))

	const callers = 5
	results := make([][]byte, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.ImageBytes(context.Background(), server.URL+"/avatar.png")
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("upstream hit %d times, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], payload) {
			t.Errorf("caller %d got %v", i, results[i])
		}
	}
}

func TestImageBytesNotHeldInResponseCache(t *testing.T) {
	var hits int64
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		_, _ = w.Write([]byte("img"))
	}))

	url := server.URL + "/avatar.png"
	if _, err := client.ImageBytes(context.Background(), url); err != nil {
		t.Fatalf("first ImageBytes failed: %v", err)
	}
	if _, err := client.ImageBytes(context.Background(), url); err != nil {
		t.Fatalf("second ImageBytes failed: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("upstream hit %d times, want 2 (image bytes bypass the response cache)", got)
	}
}

func TestRequestsCarryUserAgent(t *testing.T) {
	var gotUA string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `[]`)
	}), WithUserAgent("stats-probe/1.0"))

	if _, err := client.Heroes(context.Background()); err != nil {
		t.Fatalf("Heroes failed: %v", err)
	}
	if gotUA != "stats-probe/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "stats-probe/1.0")
	}
}
