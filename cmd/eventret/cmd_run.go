package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"eventret/internal/api"
	"eventret/internal/app"
	"eventret/internal/report"
	"eventret/pkg/eventret"
)

// runCmd runs one backtest locally or against a server.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Backtest a catalog or an ad-hoc event list",
	Long: `Run a backtest and print the per-event returns followed by Avg, StDev
and WinRate.

Examples:
  eventret run --catalog wwdc --entry -1 --exit 0
  eventret run --symbol MSFT --event 2023=2023-05-23 --event 2024=2024-05-21 --entry -5 --exit 5
  eventret run --catalog iphone --entry 0 --exit 20 --format csv
  eventret run --remote http://localhost:8080 --catalog wwdc --entry -1 --exit 5`,
	RunE: runRun,
}

var (
	runCatalog string
	runSymbol  string
	runEvents  []string
	runEntry   int
	runExit    int
	runFormat  string
	runPlain   bool
	runRemote  string
	runGRPC    string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runCatalog, "catalog", "", "event catalog (default from config)")
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "override the catalog symbol")
	runCmd.Flags().StringArrayVar(&runEvents, "event", nil, "ad-hoc event as id=YYYY-MM-DD (repeatable)")
	runCmd.Flags().IntVar(&runEntry, "entry", -1, "entry offset in sessions")
	runCmd.Flags().IntVar(&runExit, "exit", 0, "exit offset in sessions")
	runCmd.Flags().StringVar(&runFormat, "format", "table", "output format (table|csv|json)")
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "disable colours in table output")
	runCmd.Flags().StringVar(&runRemote, "remote", "", "eventret-server base URL to run against")
	runCmd.Flags().StringVar(&runGRPC, "grpc", "", "eventret-server gRPC address to run against")
}

func runRun(cmd *cobra.Command, args []string) error {
	switch runFormat {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q", runFormat)
	}
	events, err := parseEventFlags(runEvents)
	if err != nil {
		return err
	}
	req := api.RunRequest{Catalog: runCatalog, Symbol: runSymbol, Events: events, Entry: runEntry, Exit: runExit}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var resp *api.RunResponse
	switch {
	case runRemote != "":
		resp, err = eventret.NewClient(runRemote).Run(ctx, req)
	case runGRPC != "":
		resp, err = runOverGRPC(ctx, runGRPC, req)
	default:
		resp, err = runLocal(ctx, req)
	}
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), resp, runFormat, runPlain)
}

func runLocal(ctx context.Context, req api.RunRequest) (*api.RunResponse, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Service().Run(ctx, req)
}

func runOverGRPC(ctx context.Context, addr string, req api.RunRequest) (*api.RunResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()
	return api.NewClient(conn).Run(ctx, req)
}

// parseEventFlags turns "id=YYYY-MM-DD" flags into events. A bare date is
// its own id.
func parseEventFlags(flags []string) ([]api.EventView, error) {
	var out []api.EventView
	for _, f := range flags {
		id, date, ok := strings.Cut(f, "=")
		if !ok {
			id, date = f, f
		}
		if id == "" || date == "" {
			return nil, fmt.Errorf("bad --event %q, want id=YYYY-MM-DD", f)
		}
		out = append(out, api.EventView{ID: id, Date: date})
	}
	return out, nil
}

func printResult(w io.Writer, resp *api.RunResponse, format string, plain bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Result)
	case "csv":
		return report.WriteCSV(w, resp.Result.Rows)
	default:
		_, err := fmt.Fprintln(w, report.Table(resp.Result, plain))
		return err
	}
}
