package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"hsr-monitor/internal/apperr"
	"hsr-monitor/internal/dispatcher"
	"hsr-monitor/internal/ftc"
	"hsr-monitor/internal/poller"
	"hsr-monitor/internal/render"
	"hsr-monitor/internal/sender"
	"hsr-monitor/internal/viewer"
	pkgmetrics "hsr-monitor/pkg/metrics"
	"hsr-monitor/pkg/shared"
)

// newPoller builds the full alert pipeline. The returned cleanup closes
// the channels and backends.
func newPoller(ctx context.Context, cfgPath string) (*poller.Poller, *app, func(), error) {
	cfg, err := loadConfig(cfgPath, true)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	channels, err := sender.NewChannels(ctx, cfg, a.subscribers)
	if err != nil {
		a.Close()
		return nil, nil, nil, err
	}

	client := ftc.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout)
	renderer := render.NewRenderer(render.NewEmailRenderer(cfg.EmailTemplate))
	disp := dispatcher.New(channels.Registry).WithCallTimeout(cfg.HTTPTimeout)
	p := poller.New(client, a.watermark, renderer, disp, a.recorder, cfg.ScanLimit)

	cleanup := func() {
		if err := channels.Close(); err != nil {
			slog.Warn("Failed to close channels", "error", err)
		}
		if err := a.Close(); err != nil {
			slog.Warn("Failed to close backends", "error", err)
		}
	}
	return p, a, cleanup, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	fs.Parse(args)

	ctx := context.Background()
	p, a, cleanup, err := newPoller(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("Starting HSR monitor run", "limit", a.cfg.ScanLimit, "base_url", a.cfg.BaseURL)
	err = p.RunOnce(ctx)
	if a.collector != nil {
		a.collector.Flush(ctx)
	}
	if err != nil {
		return fmt.Errorf("poll run failed: %w", err)
	}
	return nil
}

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	interval := fs.Duration("interval", 0, "Poll interval (overrides HSR_POLL_INTERVAL)")
	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	p, a, cleanup, err := newPoller(ctx, *cfgPath)
	if err != nil {
		return err
	}
	defer cleanup()

	every := a.cfg.PollInterval
	if *interval > 0 {
		every = *interval
	}

	if a.collector != nil {
		a.collector.Start(ctx)
		defer a.collector.Stop()
	}

	slog.Info("Starting HSR monitor", "interval", every, "limit", a.cfg.ScanLimit)
	if err := p.RunLoop(ctx, every); err != nil {
		return err
	}
	slog.Info("HSR monitor stopped")
	return nil
}

func viewCommand(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	keyword := fs.String("keyword", "", "Filter titles containing this text")
	date := fs.String("date", "", "Only notices with this transaction date (YYYY-MM-DD)")
	limit := fs.Int("limit", 0, "Number of latest notices to fetch (10-200, default HSR_MONITOR_LIMIT)")
	sortBy := fs.String("sort", "date", "Sort column: date, acquirer, target, title, link, transaction_number, status")
	order := fs.String("order", "desc", "Sort order: desc or asc")
	csvPath := fs.String("csv", "", "Also export the table to this CSV file")
	detail := fs.String("detail", "", "Show details for this transaction number")
	refresh := fs.Duration("refresh", 0, "Repaint the table at this interval until interrupted (0 shows it once)")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath, true)
	if err != nil {
		return err
	}

	opts := viewer.Options{Keyword: *keyword, Limit: cfg.ScanLimit}
	if *limit != 0 {
		opts.Limit = *limit
	}
	if opts.Limit < ftc.MinLimit || opts.Limit > ftc.MaxLimit {
		return fmt.Errorf("--limit must be between %d and %d, got %d", ftc.MinLimit, ftc.MaxLimit, opts.Limit)
	}
	if *date != "" {
		if opts.Date, err = ftc.ParseDate(*date); err != nil {
			return err
		}
	}
	if opts.SortBy, err = viewer.ParseSortKey(*sortBy); err != nil {
		return err
	}
	if opts.Desc, err = viewer.ParseOrder(*order); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Repaints inside the cache TTL reuse the previous batch.
	fetcher := ftc.NewCachingFetcher(ftc.NewClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout), ftc.MaxCacheTTL)
	v := viewer.New(fetcher, a.watermark)

	showView(ctx, v, opts, *csvPath, *detail)
	if *refresh <= 0 {
		return nil
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()
	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			fmt.Fprintf(os.Stdout, "\n--- refreshed %s ---\n", time.Now().Format(time.DateTime))
			showView(ctx, v, opts, *csvPath, *detail)
		}
	}
}

// showView loads and prints one table. Upstream failures are shown, not
// returned.
func showView(ctx context.Context, v *viewer.Viewer, opts viewer.Options, csvPath, detail string) {
	view, err := v.Load(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stdout, viewer.ErrorMessage(err))
		return
	}

	fmt.Fprint(os.Stdout, viewer.Render(view))

	if csvPath != "" && !view.Empty() {
		if err := viewer.ExportCSV(csvPath, view.Rows); err != nil {
			fmt.Fprintf(os.Stdout, "CSV export failed: %v\n", err)
		} else {
			fmt.Fprintf(os.Stdout, "Exported %d rows to %s\n", len(view.Rows), csvPath)
		}
	}

	if detail != "" {
		if row, ok := view.Detail(detail); ok {
			fmt.Fprintf(os.Stdout, "\nNotice details\n%s", viewer.RenderDetail(row))
		} else {
			fmt.Fprintf(os.Stdout, "\nNo notice with transaction number %q in the current results.\n", detail)
		}
	}
}

func subscribeCommand(args []string) error {
	fs := flag.NewFlagSet("subscribe", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	email := fs.String("email", "", "Subscriber email address")
	name := fs.String("name", "", "Subscriber name (optional)")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.subscribers.Add(ctx, *email, *name)
	if err != nil {
		return fmt.Errorf("subscribing %q: %w", *email, err)
	}
	if added {
		fmt.Fprintf(os.Stdout, "Subscribed %s to HSR early termination alerts.\n", *email)
	} else {
		fmt.Fprintf(os.Stdout, "%s is already subscribed.\n", *email)
	}
	return nil
}

func subscribersCommand(args []string) error {
	fs := flag.NewFlagSet("subscribers", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	subs, err := a.subscribers.List(ctx)
	if err != nil {
		slog.Warn("Failed to read subscribers", "error", err)
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stdout, "No subscribers.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tSUBSCRIBED")
	for _, s := range subs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Email, s.Name, s.CreatedAt)
	}
	return w.Flush()
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to a YAML config file")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath, false)
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return &apperr.ConfigError{Key: "REDIS_ADDR", Reason: "is required to read run metrics"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := shared.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	m, err := pkgmetrics.NewReader(client).GetServiceMetrics(ctx, serviceName)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Service\t%s\n", m.ServiceName)
	fmt.Fprintf(w, "Status\t%s\n", m.Status)
	fmt.Fprintf(w, "Started\t%s\n", m.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Last updated\t%s\n", m.LastUpdated.Format(time.RFC3339))
	fmt.Fprintf(w, "Runs\t%d\n", m.Runs)
	fmt.Fprintf(w, "Fetch errors\t%d\n", m.FetchErrors)
	fmt.Fprintf(w, "Notices fetched\t%d\n", m.NoticesFetched)
	fmt.Fprintf(w, "New notices\t%d\n", m.NewNotices)
	fmt.Fprintf(w, "Avg run latency\t%s\n", time.Duration(m.AvgRunLatencyNs).Round(time.Millisecond))
	for _, name := range slices.Sorted(maps.Keys(m.CustomCounters)) {
		fmt.Fprintf(w, "%s\t%d\n", name, m.CustomCounters[name])
	}
	return w.Flush()
}
