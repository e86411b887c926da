package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"careersync/pkg/models"

	"github.com/alecthomas/kong"
	"github.com/muesli/termenv"
)

var version = "dev"

type CLI struct {
	Addr string `help:"Service base URL." env:"JOBCTL_ADDR" default:"http://localhost:8080"`
	JSON bool   `help:"Print raw JSON responses; disables colors."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Fetch  FetchCmd  `cmd:"" help:"Fetch jobs from a careers page."`
	Status StatusCmd `cmd:"" help:"Show the status of an async fetch."`
	Watch  WatchCmd  `cmd:"" help:"Poll an async fetch until it finishes."`
	Health HealthCmd `cmd:"" help:"Check service readiness."`
	Stats  StatsCmd  `cmd:"" help:"Show worker pool statistics."`
}

// runContext is handed to every command Run method by kong.
type runContext struct {
	client *apiClient
	output *termenv.Output
	json   bool
	color  bool
}

func main() {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("jobctl"),
		kong.Description("Operator CLI for the CareerSync job fetcher."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	output := termenv.NewOutput(os.Stdout)
	color := !cli.JSON && output.ColorProfile() != termenv.Ascii
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color = false
	}

	rc := &runContext{
		// Synchronous fetches can legitimately ride a browser strategy
		// chain for minutes; size the client timeout accordingly.
		client: newAPIClient(cli.Addr, 6*time.Minute),
		output: output,
		json:   cli.JSON,
		color:  color,
	}

	if err := kctx.Run(rc); err != nil {
		msg := strings.TrimRight(err.Error(), "\n")
		if color {
			errOut := termenv.NewOutput(os.Stderr)
			msg = errOut.String(msg).Foreground(errOut.Color("1")).String()
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

func (rc *runContext) colorize(text, ansi string) string {
	if !rc.color {
		return text
	}
	return rc.output.String(text).Foreground(rc.output.Color(ansi)).String()
}

func (rc *runContext) statusText(status models.AsyncStatus) string {
	switch status {
	case models.AsyncStatusSuccess:
		return rc.colorize(string(status), "2")
	case models.AsyncStatusFailure:
		return rc.colorize(string(status), "1")
	default:
		return rc.colorize(string(status), "3")
	}
}

func printRaw(raw []byte) {
	os.Stdout.Write(raw)
	if len(raw) == 0 || raw[len(raw)-1] != '\n' {
		fmt.Println()
	}
}

type FetchCmd struct {
	URL     string `arg:"" help:"Careers page URL."`
	Company string `required:"" help:"Company identifier."`
	Engine  string `help:"Acquisition engine." enum:"auto,htmlfetch,browser,firecrawl" default:"auto"`
	Async   bool   `help:"Queue the fetch and return a process id instead of waiting."`
	Timeout int    `help:"Per-request fetch timeout in seconds."`
}

func (f *FetchCmd) Run(rc *runContext) error {
	req := models.FetchRequest{
		CareersURL:  f.URL,
		CompanyID:   f.Company,
		TimeoutSecs: f.Timeout,
		Options:     &models.FetchOptions{Engine: f.Engine},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Minute)
	defer cancel()

	if f.Async {
		var resp models.AsyncFetchResponse
		raw, err := rc.client.postJSON(ctx, "/api/v1/fetch/async", req, &resp)
		if err != nil {
			return err
		}
		if rc.json {
			printRaw(raw)
			return nil
		}
		fmt.Printf("process %s  %s\n", resp.ProcessID, rc.statusText(resp.Status))
		fmt.Printf("run 'jobctl watch %s' to follow it\n", resp.ProcessID)
		return nil
	}

	var resp models.FetchResponse
	raw, err := rc.client.postJSON(ctx, "/api/v1/fetch", req, &resp)
	if err != nil {
		return err
	}
	if rc.json {
		printRaw(raw)
		return nil
	}
	if !resp.Success || resp.Result == nil {
		return fmt.Errorf("fetch failed: %s", resp.Error)
	}

	printJobs(rc, resp.Result)
	fmt.Printf("%d jobs via %s in %s\n", resp.Result.TotalCount, resp.Result.Method, resp.ProcessingTime.Round(time.Millisecond))
	return nil
}

func printJobs(rc *runContext, result *models.JobFetchResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, job := range result.Jobs {
		title := job.Title
		if rc.color {
			title = rc.output.String(title).Bold().String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", title, job.Location, job.Type, job.ApplyURL)
	}
	w.Flush()
}

type StatusCmd struct {
	ProcessID string `arg:"" help:"Process id returned by an async fetch."`
}

func (s *StatusCmd) Run(rc *runContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp models.AsyncTaskStatusResponse
	raw, err := rc.client.getJSON(ctx, taskStatusPath(s.ProcessID), &resp)
	if err != nil {
		return err
	}
	if rc.json {
		printRaw(raw)
		return nil
	}

	printTaskStatus(rc, &resp)
	return nil
}

type WatchCmd struct {
	ProcessID string        `arg:"" help:"Process id returned by an async fetch."`
	Interval  time.Duration `help:"Polling interval." default:"2s"`
	Timeout   time.Duration `help:"Give up after this long." default:"10m"`
}

func (w *WatchCmd) Run(rc *runContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	var last models.AsyncStatus
	for {
		var resp models.AsyncTaskStatusResponse
		raw, err := rc.client.getJSON(ctx, taskStatusPath(w.ProcessID), &resp)
		if err != nil {
			return err
		}

		if resp.IsCompleted() {
			if rc.json {
				printRaw(raw)
			} else {
				printTaskStatus(rc, &resp)
			}
			if resp.Status == models.AsyncStatusFailure {
				return fmt.Errorf("fetch failed: %s", resp.Error)
			}
			return nil
		}

		if resp.Status != last {
			if !rc.json {
				fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), rc.statusText(resp.Status))
			}
			last = resp.Status
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up after %s waiting for %s", w.Timeout, w.ProcessID)
		case <-ticker.C:
		}
	}
}

func taskStatusPath(processID string) string {
	return "/api/v1/fetch/status/" + url.PathEscape(processID)
}

func printTaskStatus(rc *runContext, resp *models.AsyncTaskStatusResponse) {
	fmt.Printf("%s  %s\n", resp.ProcessID, rc.statusText(resp.Status))
	fmt.Printf("created    %s\n", resp.CreatedAt.Format(time.RFC3339))
	if resp.CompletedAt != nil {
		fmt.Printf("completed  %s\n", resp.CompletedAt.Format(time.RFC3339))
	}
	if resp.ProcessingTime != nil {
		fmt.Printf("took       %s\n", resp.ProcessingTime.Round(time.Millisecond))
	}
	if resp.Error != "" {
		fmt.Printf("error      %s\n", resp.Error)
	}

	// Completion data arrives as generic JSON; dig out the headline numbers.
	if data, ok := resp.Data.(map[string]interface{}); ok {
		if result, ok := data["result"].(map[string]interface{}); ok {
			if count, ok := result["total_count"].(float64); ok {
				fmt.Printf("jobs       %d\n", int(count))
			}
			if method, ok := result["method"].(string); ok {
				fmt.Printf("method     %s\n", method)
			}
		}
		if summary, ok := data["sync"].(map[string]interface{}); ok {
			if synced, ok := summary["synced_count"].(float64); ok {
				fmt.Printf("synced     %d\n", int(synced))
			}
		}
	}
}

type HealthCmd struct{}

func (h *HealthCmd) Run(rc *runContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp models.HealthResponse
	raw, err := rc.client.getJSON(ctx, "/health/ready", &resp)
	if err != nil {
		return err
	}
	if rc.json {
		printRaw(raw)
		return nil
	}

	label := rc.colorize(resp.Status, "2")
	if resp.Status != "ready" {
		label = rc.colorize(resp.Status, "1")
	}
	fmt.Printf("%s  version %s  up %s\n", label, resp.Version, resp.Uptime.Round(time.Second))
	for name, state := range resp.Checks {
		fmt.Printf("  %-8s %s\n", name, state)
	}
	if resp.Status != "ready" {
		return fmt.Errorf("service is not ready")
	}
	return nil
}

type StatsCmd struct{}

// workerStatus mirrors the worker status endpoint payload.
type workerStatus struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	WorkerCount    int    `json:"worker_count"`
	QueueSize      int    `json:"queue_size"`
	TasksProcessed int64  `json:"tasks_processed"`
	TasksQueued    int64  `json:"tasks_queued"`
	TasksSucceeded int64  `json:"tasks_succeeded"`
	TasksFailed    int64  `json:"tasks_failed"`
}

func (s *StatsCmd) Run(rc *runContext) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp workerStatus
	raw, err := rc.client.getJSON(ctx, "/api/v1/workers/status", &resp)
	if err != nil {
		return err
	}
	if rc.json {
		printRaw(raw)
		return nil
	}

	status := rc.colorize(resp.Status, "2")
	if resp.Status != "healthy" {
		status = rc.colorize(resp.Status, "1")
	}
	fmt.Printf("pool %s\n", status)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "workers\t%d\n", resp.WorkerCount)
	fmt.Fprintf(w, "queue\t%d\n", resp.QueueSize)
	fmt.Fprintf(w, "queued\t%d\n", resp.TasksQueued)
	fmt.Fprintf(w, "processed\t%d\n", resp.TasksProcessed)
	fmt.Fprintf(w, "succeeded\t%d\n", resp.TasksSucceeded)
	fmt.Fprintf(w, "failed\t%d\n", resp.TasksFailed)
	w.Flush()
	return nil
}
