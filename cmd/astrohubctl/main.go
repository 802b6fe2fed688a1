package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// client talks to the admin API of a running astrohub.
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(c.baseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &client{http: &http.Client{Timeout: 15 * time.Second}}

	root := &cobra.Command{
		Use:           "astrohubctl",
		Short:         "CLI for the astrohub admin API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.baseURL, "url", envOr("ASTROHUB_URL", "http://localhost:8080"),
		"admin API base URL (env ASTROHUB_URL)")
	root.PersistentFlags().StringVar(&c.token, "token", os.Getenv("ASTROHUB_ADMIN_TOKEN"),
		"admin bearer token (env ASTROHUB_ADMIN_TOKEN)")

	root.AddCommand(ordersCmd(c), runsCmd(c), providersCmd(c))
	return root
}

type order struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Kind      string         `json:"kind"`
	Payload   string         `json:"payload"`
	Amount    int            `json:"amount_stars"`
	ChargeID  string         `json:"charge_id"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
}

func ordersCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{Use: "orders", Short: "Inspect orders"}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Orders []order `json:"orders"`
			}
			if err := c.get("/admin/v1/orders?limit="+strconv.Itoa(limit), &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tUSER\tPAYLOAD\tSTARS\tSTATUS\tCREATED")
			for _, o := range resp.Orders {
				_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\n",
					o.ID, o.UserID, o.Payload, o.Amount, o.Status, o.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "number of orders (1..200)")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one order with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			var o map[string]any
			if err := c.get("/admin/v1/orders/"+args[0], &o); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(o)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func runsCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{Use: "runs", Short: "Inspect report pipeline runs"}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Runs []struct {
					OrderID     int64  `json:"order_id"`
					Kind        string `json:"kind"`
					ProviderID  string `json:"provider_id"`
					Model       string `json:"model"`
					Outcome     string `json:"outcome"`
					RepairStage string `json:"repair_stage"`
					LatencyMs   int64  `json:"latency_ms"`
					Vision      bool   `json:"vision"`
				} `json:"runs"`
			}
			path := fmt.Sprintf("/admin/v1/runs?limit=%d&offset=%d", limit, offset)
			if err := c.get(path, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ORDER\tKIND\tOUTCOME\tPROVIDER\tMODEL\tSTAGE\tLATENCY\tVISION")
			for _, r := range resp.Runs {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%dms\t%t\n",
					r.OrderID, r.Kind, r.Outcome, dash(r.ProviderID), dash(r.Model), dash(r.RepairStage), r.LatencyMs, r.Vision)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "number of runs")
	list.Flags().IntVar(&offset, "offset", 0, "skip this many runs")

	cmd.AddCommand(list)
	return cmd
}

func providersCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{Use: "providers", Short: "Inspect LLM providers"}

	health := &cobra.Command{
		Use:   "health",
		Short: "Show provider health in fallback order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Providers []struct {
					ID         string   `json:"id"`
					Configured bool     `json:"configured"`
					Models     []string `json:"models"`
					Health     struct {
						State         string  `json:"state"`
						TotalRequests int64   `json:"total_requests"`
						TotalErrors   int64   `json:"total_errors"`
						AvgLatencyMs  float64 `json:"avg_latency_ms"`
						LastError     string  `json:"last_error"`
					} `json:"health"`
				} `json:"providers"`
			}
			if err := c.get("/admin/v1/providers/health", &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "PROVIDER\tCONFIGURED\tSTATE\tREQUESTS\tERRORS\tAVG LATENCY\tMODELS\tLAST ERROR")
			for _, p := range resp.Providers {
				_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%d\t%.0fms\t%s\t%s\n",
					p.ID, p.Configured, p.Health.State, p.Health.TotalRequests, p.Health.TotalErrors,
					p.Health.AvgLatencyMs, strings.Join(p.Models, ","), dash(p.Health.LastError))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(health)
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
