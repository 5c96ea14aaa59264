package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rocker/smallrss/internal/store"
	"github.com/rocker/smallrss/pkg/feed"
	"github.com/rocker/smallrss/pkg/omdb"
)

// Server exposes a read-only JSON view of the store for whatever front end
// wants to render it.
type Server struct {
	store store.Store
	cache *omdb.Cache
	port  int
}

// New creates a new HTTP server.
func New(st store.Store, cache *omdb.Cache, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{store: st, cache: cache, port: port}
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{Addr: addr, Handler: s.handler()}

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("smallrss server listening on %s\n", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/feeds", s.handleFeeds)
	mux.HandleFunc("/api/v1/articles", s.handleArticles)
	mux.HandleFunc("/api/v1/unread", s.handleUnread)
	mux.HandleFunc("/api/v1/movies", s.handleMovies)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	feeds, err := s.store.ListFeeds(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// Feed listing stays light; articles have their own endpoint.
	type feedSummary struct {
		ID      int64  `json:"id"`
		Title   string `json:"title"`
		URL     string `json:"url"`
		Group   string `json:"group"`
		Entries int    `json:"entries"`
	}
	summaries := make([]feedSummary, 0, len(feeds))
	for _, f := range feeds {
		summaries = append(summaries, feedSummary{
			ID:      f.ID,
			Title:   f.Title,
			URL:     f.URL,
			Group:   feed.GroupName(f.URL),
			Entries: len(f.Entries),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  summaries,
		"count": len(summaries),
	})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	feedURL := r.URL.Query().Get("feed")
	if feedURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing feed parameter"})
		return
	}

	feeds, err := s.store.ListFeeds(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	for _, f := range feeds {
		if f.URL != feedURL {
			continue
		}
		type article struct {
			ID    string     `json:"id"`
			Entry feed.Entry `json:"entry"`
		}
		articles := make([]article, 0, len(f.Entries))
		for _, e := range f.Entries {
			articles = append(articles, article{ID: feed.ArticleID(e), Entry: e})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  articles,
			"count": len(articles),
		})
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown feed"})
}

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	read, err := s.store.LoadReadArticles(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	readSet := make(map[string]bool, len(read))
	for _, id := range read {
		readSet[id] = true
	}

	feeds, err := s.store.ListFeeds(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	unread := make(map[string]int, len(feeds))
	total := 0
	for _, f := range feeds {
		n := 0
		for _, e := range f.Entries {
			if !readSet[feed.ArticleID(e)] {
				n++
			}
		}
		unread[f.URL] = n
		total += n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  unread,
		"total": total,
	})
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{}, "count": 0})
		return
	}

	snapshot := s.cache.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  snapshot,
		"count": len(snapshot),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
