package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thousandtech/chatroom/internal/cache"
	"github.com/thousandtech/chatroom/internal/chattui"
	"github.com/thousandtech/chatroom/internal/chattui/state"
	"github.com/thousandtech/chatroom/internal/client"
	"github.com/thousandtech/chatroom/internal/config"
	"github.com/thousandtech/chatroom/internal/logging"
	"github.com/thousandtech/chatroom/internal/paging"
	"github.com/thousandtech/chatroom/internal/timeline"
)

var errNoTTY = errors.New("the chat UI needs an interactive terminal; use `chatroom history <room>` to print messages")

type tuiOptions struct {
	room  string
	theme string
}

func runTUI(cmd *cobra.Command, opts tuiOptions) error {
	if !hasTTY() {
		return errNoTTY
	}
	cfg := appConfig

	// Log lines on stderr would corrupt the alternate screen.
	logFile, err := logging.OpenFile(cfg.LogFilePath())
	if err != nil {
		return err
	}
	defer logFile.Close()
	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       "json",
		Output:       logFile,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	user := currentUser(cfg)
	norm := newNormalizer(cfg)
	api := newAPI(cfg)

	var fetcher paging.Fetcher = api
	var transcript chattui.Transcript
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.CachePath())
		if err != nil {
			logging.Logger.Warn().Err(err).Str("path", cfg.CachePath()).Msg("transcript cache disabled")
		} else {
			defer store.Close()
			fetcher = tuiFetcher(cfg, api, store, norm)
			transcript = store
		}
	}

	wsURL, err := client.WebsocketURL(cfg.Server.URL, cfg.Server.WSPath)
	if err != nil {
		return err
	}
	realtime := client.Connect(cmd.Context(), client.RealtimeConfig{
		URL:               wsURL,
		Username:          user,
		ReconnectInterval: cfg.Server.ReconnectInterval,
	})

	tuiState := state.New(cfg.StatePath())
	if err := tuiState.Load(); err != nil {
		// Non-fatal: start from empty state.
		logging.Logger.Warn().Err(err).Msg("failed to load tui state")
	}

	theme := cfg.TUI.Theme
	if opts.theme != "" {
		theme = opts.theme
	}

	err = chattui.Run(chattui.Config{
		User:            user,
		Room:            opts.room,
		Theme:           theme,
		RefreshInterval: cfg.TUI.RefreshInterval,
		FetchTimeout:    cfg.Server.Timeout,
		Normalizer:      norm,
		Paging: paging.Controller{
			PageSize:       cfg.Paging.PageSize,
			AdvanceEagerly: cfg.Paging.AdvanceEagerly,
			Fetcher:        fetcher,
		},
		Rooms:      api,
		Realtime:   realtime,
		Transcript: transcript,
		State:      tuiState,
	})
	rememberRoom(cfg, tuiState.LastRoom())
	return err
}

// tuiFetcher records fetched pages in store. A failed fetch is answered from
// the cache only when cache.fallback is set.
func tuiFetcher(cfg *config.Config, upstream paging.Fetcher, store *cache.Store, norm timeline.Normalizer) paging.Fetcher {
	return cache.NewFetcher(upstream, store, norm, cfg.Cache.Fallback)
}

func rememberRoom(cfg *config.Config, room string) {
	if room == "" {
		return
	}
	store := config.NewContextStore(cfg.ContextPath())
	ctx, err := store.Load()
	if err != nil || ctx.IsEmpty() {
		return
	}
	ctx.SetRoom(room)
	if err := store.Save(ctx); err != nil {
		logging.Logger.Warn().Err(err).Msg("failed to save login context")
	}
}

func hasTTY() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func hasTTYFd(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}
