package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rocker/smallrss/internal/config"
	"github.com/rocker/smallrss/internal/legacy"
	"github.com/rocker/smallrss/internal/scheduler"
	"github.com/rocker/smallrss/internal/store"
	"github.com/rocker/smallrss/pkg/favicon"
	"github.com/rocker/smallrss/pkg/feed"
	"github.com/rocker/smallrss/pkg/omdb"
	"github.com/rocker/smallrss/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// buildQueue wires the metadata cache and lookup queue; both are nil when
// no API key is configured.
func buildQueue(ctx context.Context, cfg *config.Config, st store.Store) (*omdb.Queue, *omdb.Cache, error) {
	if cfg.Omdb.APIKey == "" {
		return nil, nil, nil
	}

	cache := omdb.NewCache()
	persisted, err := st.LoadMovieCache(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load movie cache: %w", err)
	}
	cache.Replace(persisted)

	client := omdb.NewHTTPClient(cfg.Omdb.APIKey, "")
	queue := omdb.NewQueue(client, cache, cfg.Omdb.MaxInflight, func(res omdb.Result) {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "  omdb %q error: %v\n", res.Title, res.Err)
			return
		}
		fmt.Fprintf(os.Stderr, "  omdb %q: cached\n", res.Title)
	})
	return queue, cache, nil
}

func buildIcons(cfg *config.Config) *favicon.Fetcher {
	if !cfg.Favicons.Enabled {
		return nil
	}
	return favicon.NewFetcher()
}

func runAdd(url, title string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	feedTitle, entries, err := feed.NewFetcher().Fetch(ctx, url)
	if err != nil {
		return err
	}
	if title == "" {
		title = feedTitle
	}

	if err := st.UpsertFeed(ctx, title, url, 1, 0); err != nil {
		return err
	}
	if err := st.UpsertEntries(ctx, url, entries); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "added %s (%d entries)\n", url, len(entries))
	return nil
}

func runRemove(url string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RemoveFeed(context.Background(), url); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "removed %s\n", url)
	return nil
}

func runList() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	feeds, err := st.ListFeeds(ctx)
	if err != nil {
		return err
	}
	read, err := st.LoadReadArticles(ctx)
	if err != nil {
		return err
	}
	readSet := make(map[string]bool, len(read))
	for _, id := range read {
		readSet[id] = true
	}

	if len(feeds) == 0 {
		fmt.Println("no feeds (add one: smallrss add URL)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tGROUP\tARTICLES\tUNREAD\tURL")
	for _, f := range feeds {
		unread := 0
		for _, e := range f.Entries {
			if !readSet[feed.ArticleID(e)] {
				unread++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			f.Title, feed.GroupName(f.URL), len(f.Entries), unread, f.URL)
	}
	return w.Flush()
}

func runRefresh(replace bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	queue, cache, err := buildQueue(ctx, cfg, st)
	if err != nil {
		return err
	}

	if replace {
		// One-shot full replace per feed; drops articles the feed no
		// longer carries.
		feeds, err := st.ListFeeds(ctx)
		if err != nil {
			return err
		}
		fetcher := feed.NewFetcher()
		for _, f := range feeds {
			_, entries, err := fetcher.Fetch(ctx, f.URL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s error: %v\n", f.URL, err)
				continue
			}
			if err := st.ReplaceEntries(ctx, f.URL, entries); err != nil {
				fmt.Fprintf(os.Stderr, "  %s store error: %v\n", f.URL, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "  %s: %d entries\n", f.URL, len(entries))
		}
		return nil
	}

	sched := scheduler.New(st, feed.NewFetcher(), queue, cache, buildIcons(cfg), cfg.Refresh.ParseInterval())
	sched.RefreshAll(ctx)

	if queue != nil {
		queue.Wait()
		if err := st.SaveMovieCache(ctx, cache.Snapshot()); err != nil {
			return fmt.Errorf("persist movie cache: %w", err)
		}
	}
	return nil
}

func runLookup(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Omdb.APIKey == "" {
		return fmt.Errorf("no OMDb API key configured (set OMDB_API_KEY)")
	}

	raw := strings.Join(args, " ")
	title, year := omdb.ExtractTitle(raw)
	if title == "" {
		return fmt.Errorf("no usable title in %q", raw)
	}
	if year > 0 {
		fmt.Fprintf(os.Stderr, "looking up %q (%d)\n", title, year)
	} else {
		fmt.Fprintf(os.Stderr, "looking up %q\n", title)
	}

	client := omdb.NewHTTPClient(cfg.Omdb.APIKey, "")
	data, err := client.Lookup(context.Background(), title, year)
	if err != nil {
		return err
	}

	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func runMigrate(dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dir == "" {
		dir = cfg.Data.Dir
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := legacy.Import(context.Background(), st, dir); err != nil {
		return fmt.Errorf("migrate legacy data: %w", err)
	}
	fmt.Fprintln(os.Stderr, "migration complete")
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := legacy.Import(ctx, st, cfg.Data.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "legacy import: %v\n", err)
	}

	_, cache, err := buildQueue(ctx, cfg, st)
	if err != nil {
		return err
	}

	return server.New(st, cache, port).Serve(ctx)
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := legacy.Import(ctx, st, cfg.Data.Dir); err != nil {
		fmt.Fprintf(os.Stderr, "legacy import: %v\n", err)
	}

	queue, cache, err := buildQueue(ctx, cfg, st)
	if err != nil {
		return err
	}

	sched := scheduler.New(st, feed.NewFetcher(), queue, cache, buildIcons(cfg), cfg.Refresh.ParseInterval())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return server.New(st, cache, port).Serve(ctx)
}
