package app

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"mirror/internal/client"
	"mirror/internal/config"
	"mirror/internal/logging"
	"mirror/internal/store"
	"mirror/internal/types"
	"mirror/internal/view"
)

// Run wires the daemon client, the session view registry, and the persisted
// app state into a bubbletea program and blocks until the user quits.
func Run(cfg config.Config, logger logging.Logger) error {
	c, err := client.New(cfg.DaemonAddress())
	if err != nil {
		return err
	}

	// Fail before entering the alternate screen when the daemon is down.
	probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := c.Health(probeCtx); err != nil {
		return fmt.Errorf("mirrord is not reachable at %s (is it running?): %w", cfg.DaemonAddress(), err)
	}

	registry := view.NewRegistry(c, view.Options{
		RefreshInterval: cfg.RefreshInterval(),
		PageSize:        cfg.Sync.PageSize,
		UnpinThreshold:  cfg.View.UnpinThreshold,
		RepinThreshold:  cfg.View.RepinThreshold,
		Logger:          logger,
	})

	opts := []ModelOption{WithLogger(logger)}

	statePath, err := config.StateDBPath()
	if err == nil {
		if st, storeErr := store.Open(statePath); storeErr == nil {
			defer st.Close()
			opts = append(opts, WithAppState(st))
			opts = append(opts, startupOptions(st, cfg)...)
		} else {
			logger.Warn("app_state_store_unavailable", logging.F("error", storeErr))
		}
	}

	m := NewModel(registry, c, opts...)
	p := tea.NewProgram(m)
	m.SetNotify(func() {
		p.Send(transcriptSyncedMsg{})
	})

	_, err = p.Run()
	registry.CloseActive()
	return err
}

// startupOptions restores the previous view mode and reopens the last
// session when one is recorded.
func startupOptions(st *store.Store, cfg config.Config) []ModelOption {
	var opts []ModelOption
	state, err := st.LoadAppState()
	if err != nil || state == nil {
		state = &types.AppState{}
	}
	mode := state.ViewMode
	if mode == "" {
		mode = cfg.View.DefaultMode
	}
	opts = append(opts, WithGroupedView(mode == "grouped"))
	if state.LastSessionID != "" {
		opts = append(opts, WithStartSession(state.LastSessionID))
	}
	return opts
}
