// Command dota2-tui looks up a player on OpenDota and prints the
// profile and recent matches, rendering the avatar inline when the
// terminal supports an image protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/noahlias/dota2-tui/api"
	"github.com/noahlias/dota2-tui/config"
	"github.com/noahlias/dota2-tui/recent"
	"github.com/noahlias/dota2-tui/termimg"
)

func main() {
	accountID := flag.Uint("account", 0, "OpenDota account id to look up")
	baseURL := flag.String("base-url", "", "override the API base URL")
	matchID := flag.Uint64("match", 0, "show detail for a match id instead of a player")
	metricsAddr := flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println(api.GetVersion())
		return
	}
	if *accountID == 0 && *matchID == 0 {
		showRecent()
		fmt.Fprintln(os.Stderr, "usage: dota2-tui -account <id> | -match <id>")
		os.Exit(2)
	}

	if err := run(uint32(*accountID), *matchID, *baseURL, *metricsAddr, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "dota2-tui:", err)
		os.Exit(1)
	}
}

// showRecent prints the recent-search history, newest first, so an
// invocation without arguments reminds the user which accounts they
// looked up before.
func showRecent() {
	path, err := config.RecentPath()
	if err != nil {
		return
	}
	entries := recent.Load(path, 10)
	if len(entries) == 0 {
		return
	}

	fmt.Println("Recent searches:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(w, "  %d\t%s\n", entry.AccountID, entry.Personaname)
	}
	_ = w.Flush()
	fmt.Println()
}

func run(accountID uint32, matchID uint64, baseURL, metricsAddr string, verbose bool) error {
	cfg, _, err := config.LoadOrCreate()
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}

	options := []api.Option{
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithRateLimit(cfg.API.RateLimitPerMinute),
		api.WithCache(cfg.API.CacheMaxEntries, cfg.API.CacheTTL()),
		api.WithMaxInflight(cfg.API.MaxInflight),
	}
	if logPath, err := cfg.LogPath(); err == nil && logPath != "" {
		if requestLog, err := api.NewRequestLog(logPath); err == nil {
			options = append(options, api.WithRequestLog(requestLog))
		}
	}
	if verbose {
		options = append(options, api.WithSimpleLogger())
	}
	if metricsAddr != "" {
		options = append(options, api.WithMetrics())
		go func() {
			// Best effort debug listener.
			_ = http.ListenAndServe(metricsAddr, promhttp.Handler())
		}()
	}

	client := api.New(options...)
	if err := client.ValidationError(); err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if matchID != 0 {
		return showMatch(ctx, client, matchID)
	}
	return showPlayer(ctx, client, cfg, accountID)
}

func showPlayer(ctx context.Context, client *api.Client, cfg config.Config, accountID uint32) error {
	var (
		player  *api.PlayerResponse
		matches []api.PlayerMatch
		heroes  map[int]string
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		player, err = client.Profile(groupCtx, accountID)
		return err
	})
	group.Go(func() error {
		var err error
		matches, err = client.RecentMatches(groupCtx, accountID)
		return err
	})
	group.Go(func() error {
		var err error
		heroes, err = client.Heroes(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	name := "unknown"
	if player.Profile != nil && player.Profile.Personaname != "" {
		name = player.Profile.Personaname
	}
	fmt.Printf("%s (account %d)\n", name, accountID)
	if player.MMREstimate != nil && player.MMREstimate.Estimate > 0 {
		fmt.Printf("MMR estimate: %d\n", player.MMREstimate.Estimate)
	}

	renderAvatar(ctx, client, cfg, player.Profile.AvatarURL())

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATCH\tHERO\tRESULT\tK/D/A\tDURATION")
	for _, m := range matches {
		hero := heroes[m.HeroID]
		if hero == "" {
			hero = fmt.Sprintf("hero %d", m.HeroID)
		}
		result := "loss"
		if m.Won() {
			result = "win"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d/%d\t%s\n",
			m.MatchID, hero, result,
			m.Kills, m.Deaths, m.Assists,
			(time.Duration(m.Duration) * time.Second).String(),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if path, err := config.RecentPath(); err == nil {
		_ = recent.Append(path, recent.Entry{
			AccountID:   accountID,
			Personaname: name,
			AvatarURL:   player.Profile.AvatarURL(),
		})
	}
	return nil
}

func showMatch(ctx context.Context, client *api.Client, matchID uint64) error {
	var (
		detail *api.MatchDetail
		heroes map[int]string
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		detail, err = client.MatchDetail(groupCtx, matchID)
		return err
	})
	group.Go(func() error {
		var err error
		heroes, err = client.Heroes(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYER\tHERO\tK/D/A\tGPM\tXPM\tNET")
	for _, p := range detail.Players {
		name := p.Personaname
		if name == "" {
			name = "anonymous"
		}
		hero := heroes[p.HeroID]
		if hero == "" {
			hero = fmt.Sprintf("hero %d", p.HeroID)
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d/%d\t%d\t%d\t%d\n",
			name, hero, p.Kills, p.Deaths, p.Assists,
			p.GoldPerMin, p.XPPerMin, p.NetWorth,
		)
	}
	return w.Flush()
}

// renderAvatar draws the player's avatar through the negotiated
// protocol, serving bytes from the on-disk cache when possible. Image
// failures degrade to the placeholder; they never fail the lookup.
func renderAvatar(ctx context.Context, client *api.Client, cfg config.Config, avatarURL string) {
	support := termimg.Resolve(cfg.Images.Protocol, cfg.Images.Enabled)
	if avatarURL == "" {
		return
	}
	if !support.Active() {
		fmt.Println(termimg.Placeholder)
		return
	}

	var cache *termimg.DiskCache
	if dir, err := config.ImageCacheDir(); err == nil {
		cache = termimg.NewDiskCache(dir)
	}

	img, err := termimg.Fetch(ctx, cache, client.ImageBytes, avatarURL)
	if err != nil {
		fmt.Println(termimg.Placeholder)
		return
	}

	if err := support.Render(os.Stdout, img, 20, 10); err != nil {
		fmt.Println(termimg.Placeholder)
		return
	}
	fmt.Println()
}
