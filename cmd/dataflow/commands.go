package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/JonMunkholm/dataflow/internal/config"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/logging"
	"github.com/JonMunkholm/dataflow/internal/web"
)

func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := fs.Int("port", cfg.Server.Port, "port to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Server.Port = *port

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("configuration loaded", "config", cfg.String())

	a.gate.OnUnauthorized(func() {
		slog.Warn("session rejected by backend, sign in again", "url", "http://"+cfg.Server.Addr()+"/login")
	})

	if ok, err := a.svc.Seed(ctx); err != nil {
		slog.Warn("snapshot not loaded", "error", err)
	} else if ok {
		slog.Info("showing snapshot until refresh completes")
	}

	canFetch := a.gate.IsAuthenticated() || strings.EqualFold(cfg.Backend.Source, "postgres")
	if cfg.Refresh.OnStart && canFetch {
		go func() {
			rctx := logging.With(ctx, "trigger", "start")
			if err := a.svc.Refresh(rctx); err != nil {
				logging.FromContext(rctx).Warn("initial refresh failed", "error", err)
			}
		}()
	}

	if cfg.Refresh.Schedule != "" {
		stopSchedule, err := a.svc.StartRefreshSchedule(ctx, cfg.Refresh.Schedule)
		if err != nil {
			return err
		}
		defer stopSchedule()
	}

	if cfg.Upload.DropDir != "" {
		if err := a.svc.WatchDropFolder(ctx, cfg.Upload.DropDir); err != nil {
			return err
		}
	}

	server := web.NewServer(cfg, a.svc, a.gate, a.client)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if st := a.svc.ExportStatus(); st.Active > 0 {
		slog.Info("waiting for exports to complete", "active", st.Active)
		if err := a.svc.WaitForExports(shutdownCtx); err != nil {
			slog.Warn("exports did not complete in time", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func runLogin(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(in, "Email: ")
	}
	if *password == "" {
		*password = os.Getenv("DATAFLOW_PASSWORD")
	}
	if *password == "" {
		*password = prompt(in, "Password: ")
	}
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.gate.Login(ctx, res.Token, res.User); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", *email)
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func runLogout(ctx context.Context, cfg *config.Config, args []string) error {
	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.gate.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runView(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	search := fs.String("q", "", "search term")
	sortField := fs.String("sort", "", "sort field (default: schema default)")
	desc := fs.Bool("desc", false, "sort descending")
	limit := fs.Int("limit", 50, "rows to print; 0 prints all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.load(ctx); err != nil {
		if len(a.svc.Records()) == 0 {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: showing saved data, refresh failed: %s\n", core.FormatUserError(err))
	}

	schema := a.svc.Schema()
	view, err := a.svc.View(core.ViewState{
		SearchTerm:    *search,
		SortField:     core.FieldKey(*sortField),
		SortAscending: !*desc,
	})
	if err != nil {
		return err
	}

	var refs []core.FieldRef
	var header []string
	for _, key := range schema.TableKeys() {
		if ref, ok := schema.Ref(key); ok {
			refs = append(refs, ref)
			header = append(header, schema.Field(ref).Label)
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for i, rec := range view.Records {
		if *limit > 0 && i >= *limit {
			break
		}
		cells := make([]string, len(refs))
		for j, ref := range refs {
			cells[j] = rec.Get(ref).String()
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := message.NewPrinter(language.Make(cfg.Data.Locale))
	fmt.Println()
	p.Printf("%s: %d\n", schema.Labels.Count, view.Stats.Count)
	if schema.Summable != "" {
		p.Printf("%s: %v\n", schema.Labels.Sum, view.Stats.Sum)
		p.Printf("%s: %v\n", schema.Labels.Average, view.Stats.Average)
	}
	if schema.MaxTracked != "" && schema.Labels.Max != "" {
		p.Printf("%s: %v\n", schema.Labels.Max, view.Stats.Max)
	}
	return nil
}

func runUpload(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return core.ErrNoFile
	}

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Upload.Timeout)
	defer cancel()

	res, err := a.svc.UploadFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "all", "xlsx, pdf or all")
	dir := fs.String("dir", cfg.Export.OutputDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.Export.OutputDir = *dir

	var formats []export.Format
	if *format != "all" {
		f, err := export.ParseFormat(*format)
		if err != nil {
			return err
		}
		formats = []export.Format{f}
	}

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.load(ctx); err != nil {
		if len(a.svc.Records()) == 0 {
			return err
		}
		fmt.Fprintf(os.Stderr, "warning: exporting saved data, refresh failed: %s\n", core.FormatUserError(err))
	}

	start := time.Now()
	var locations []string
	if formats == nil {
		locations, err = a.svc.ExportAll(ctx)
	} else {
		job, jerr := a.svc.Export(ctx, formats[0])
		if jerr != nil {
			err = jerr
		} else {
			var loc string
			loc, err = job.Wait(ctx)
			locations = []string{loc}
		}
	}
	if errors.Is(err, core.ErrNothingToExport) {
		fmt.Println("Nothing to export")
		return nil
	}
	if err != nil {
		return err
	}

	for _, loc := range locations {
		fmt.Println(loc)
	}
	slog.Debug("export finished", "files", len(locations), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	dir := fs.String("dir", cfg.Upload.DropDir, "folder to watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("no drop folder: pass -dir or set UPLOAD_DROP_DIR")
	}

	a, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.svc.WatchDropFolder(ctx, *dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Watching %s for %s (Ctrl+C to stop)\n", *dir, core.DescribePolicy(a.svc.Policy()))
	<-ctx.Done()
	return nil
}
