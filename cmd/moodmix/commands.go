package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/justestif/moodmix/internal/analysis"
	"github.com/justestif/moodmix/internal/clustering"
	"github.com/justestif/moodmix/internal/consent"
	"github.com/justestif/moodmix/internal/playlist"
	"github.com/justestif/moodmix/internal/policy"
	"github.com/justestif/moodmix/internal/room"
	"github.com/justestif/moodmix/internal/search"
	"github.com/justestif/moodmix/internal/sync"
	"github.com/justestif/moodmix/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.servingCatalog(ctx)
			if err != nil {
				return err
			}
			index, err := search.NewIndex(cat)
			if err != nil {
				return err
			}
			defer index.Close()

			playlists := playlist.NewService(cat)
			srvCfg := a.cfg.Server
			if addr != "" {
				srvCfg.Addr = addr
			}

			server := web.NewServer(web.ServerConfig{
				Addr:           srvCfg.Addr,
				ReadTimeout:    srvCfg.ReadTimeout,
				WriteTimeout:   srvCfg.WriteTimeout,
				IdleTimeout:    srvCfg.IdleTimeout,
				RateLimitRPS:   srvCfg.RateLimitRPS,
				RateLimitBurst: srvCfg.RateLimitBurst,
				CORSOrigins:    srvCfg.CORSOrigins,
			}, web.Services{
				Playlists: playlists,
				Analysis:  analysis.NewService(a.consent, a.history, a.classifier(), playlists, a.logger),
				Consent:   consent.NewService(a.consent),
				History:   a.history,
				Search:    index,
				Rooms:     room.NewService(room.NewMemoryStore(a.cfg.App.RoomIdleTTL), cat),
			}, a.logger)

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides MOODMIX_ADDR)")
	return cmd
}

func playlistCmd() *cobra.Command {
	var (
		emotionName string
		modeName    string
		k           int
	)

	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Print a playlist for an emotion",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := policy.ParseMode(modeName)
			if !ok {
				return fmt.Errorf("unknown mode %q (want reflect or work)", modeName)
			}
			if k < 0 {
				return fmt.Errorf("k must not be negative")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.servingCatalog(ctx)
			if err != nil {
				return err
			}

			result := playlist.NewService(cat).Generate(playlist.Request{Emotion: emotionName, Mode: mode, K: k})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n", result.Title, result.Subtitle)
			fmt.Fprintf(out, "%s | mood: %s\n\n", strings.Join(result.Summary, " · "), result.Mood.Name)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTITLE\tARTIST\tDISTANCE")
			for i, item := range result.Items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", i+1, item.Track.Title, item.Track.Artist, item.Distance)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&emotionName, "emotion", "e", "", "emotion label, e.g. sad or happy")
	cmd.Flags().StringVarP(&modeName, "mode", "m", "", "reflect or work")
	cmd.Flags().IntVarP(&k, "size", "k", playlist.DefaultSize, "number of tracks")
	return cmd
}

func moodsCmd() *cobra.Command {
	var numClusters int

	cmd := &cobra.Command{
		Use:   "moods",
		Short: "Group the catalog into moods",
		RunE: func(cmd *cobra.Command, args []string) error {
			if numClusters < 1 {
				return fmt.Errorf("clusters must be at least 1")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.servingCatalog(ctx)
			if err != nil {
				return err
			}

			cfg := clustering.DefaultMoodConfig()
			cfg.NumClusters = numClusters
			groups, outliers := clustering.DetectMoodGroups(cat.Tracks(), cfg)
			fmt.Fprint(cmd.OutOrStdout(), clustering.FormatMoodSummary(groups, outliers))
			return nil
		},
	}

	cmd.Flags().IntVarP(&numClusters, "clusters", "c", clustering.DefaultMoodConfig().NumClusters, "number of mood clusters")
	return cmd
}

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the catalog by title, artist or genre",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.servingCatalog(ctx)
			if err != nil {
				return err
			}
			index, err := search.NewIndex(cat)
			if err != nil {
				return err
			}
			defer index.Close()

			hits, err := index.Search(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			for _, h := range hits {
				genre := ""
				if h.Track.Genre != nil {
					genre = " [" + *h.Track.Genre + "]"
				}
				fmt.Fprintf(out, "\"%s\" - %s%s\n", h.Track.Title, h.Track.Artist, genre)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", search.DefaultLimit, "maximum results")
	return cmd
}

func syncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Seed the stored catalog, filling missing genres and audio features",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.catalogs == nil {
				return fmt.Errorf("sync needs persistent storage; set STORAGE_DRIVER to postgres or sqlite")
			}

			base, err := a.baseCatalog()
			if err != nil {
				return err
			}
			enricher, err := a.enricher(ctx)
			if err != nil {
				return err
			}
			if !enricher.Enabled() {
				a.logger.Warn("no enrichment providers configured; storing catalog as is")
			}

			result, err := sync.New(a.catalogs,
				sync.WithEnricher(enricher),
				sync.WithLogger(a.logger),
			).SyncCatalog(ctx, base.Tracks(), force)
			if errors.Is(err, sync.ErrSyncTooRecent) {
				return fmt.Errorf("%w (use --force to sync anyway)", err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d tracks (%d genres, %d feature sets filled, %d errors)\n",
				result.TracksCount, result.GenresFilled, result.FeaturesFilled, result.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "ignore the sync cooldown")
	return cmd
}
