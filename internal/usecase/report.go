package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"NewsPublisher/internal/domain"
	"NewsPublisher/internal/ports"
)

const reportTopN = 3

// ReportSummary counts what one firing of the report task did.
type ReportSummary struct {
	Sent    int
	Skipped int
	Failed  int
}

// ReportDeps wires the report task.
type ReportDeps struct {
	Registry ports.ClientRegistry
	Metrics  ports.MetricStore
	Reporter ports.Reporter
	Journal  *Journal
	Logger   *slog.Logger
}

// ReportTask mails each client the best scored items seen so far.
type ReportTask struct {
	registry ports.ClientRegistry
	metrics  ports.MetricStore
	reporter ports.Reporter
	journal  *Journal
	logger   *slog.Logger
}

// NewReportTask constructs the report task.
func NewReportTask(deps ReportDeps) *ReportTask {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	journal := deps.Journal
	if journal == nil {
		journal = NewJournal(nil, logger)
	}
	return &ReportTask{
		registry: deps.Registry,
		metrics:  deps.Metrics,
		reporter: deps.Reporter,
		journal:  journal,
		logger:   logger,
	}
}

// Run sends one report per active client with a configured destination.
func (t *ReportTask) Run(ctx context.Context) (ReportSummary, error) {
	var summary ReportSummary

	clients, err := t.registry.ListActiveClients(ctx)
	if err != nil {
		t.journal.Record(ctx, domain.CategoryCritical, "Report task could not load clients: %v", err)
		return summary, fmt.Errorf("list active clients: %w", err)
	}

	var recipients []domain.Client
	for _, client := range clients {
		if strings.TrimSpace(client.ReportTo) != "" {
			recipients = append(recipients, client)
		}
	}
	if len(recipients) == 0 {
		t.journal.Record(ctx, domain.CategoryEmailReport, "No clients configured to receive reports.")
		return summary, nil
	}

	for _, client := range recipients {
		var sent bool
		err := guard(func() error {
			metrics, err := t.metrics.MetricsForClient(ctx, client.ID)
			if err != nil {
				return fmt.Errorf("load metrics: %w", err)
			}
			if len(metrics) == 0 {
				return nil
			}
			report := BuildReport(client, topMetrics(metrics, reportTopN))
			if err := t.reporter.Send(ctx, report); err != nil {
				return fmt.Errorf("send report: %w", err)
			}
			sent = true
			return nil
		})

		switch {
		case err != nil:
			summary.Failed++
			t.logger.Error("report failed", "client", client.Username, "error", err)
			t.journal.Record(ctx, domain.CategoryReportError, "Failed to send report for %s: %v", client.Username, err)
		case sent:
			summary.Sent++
			t.journal.Record(ctx, domain.CategoryEmailReport, "Report sent for %s to %s.", client.Username, client.ReportTo)
		default:
			summary.Skipped++
		}
	}

	return summary, nil
}

func topMetrics(metrics []domain.MetricRecord, n int) []domain.MetricRecord {
	sorted := append([]domain.MetricRecord(nil), metrics...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// BuildReport renders the plain-text summary for one client.
func BuildReport(client domain.Client, items []domain.MetricRecord) domain.Report {
	var body strings.Builder
	body.WriteString("Hello!\n\nThese are the news items with the highest engagement potential analysed today:\n\n")
	for i, item := range items {
		fmt.Fprintf(&body, "%d. %s (Score: %.2f)\n", i+1, item.Title, item.Score)
		fmt.Fprintf(&body, "   Link: %s\n\n", item.Link)
	}
	body.WriteString("Best regards,\nThe NewsBot team")

	return domain.Report{
		Recipient:  client.ReportTo,
		ClientName: client.Username,
		Subject:    fmt.Sprintf("NewsBot - Your daily news report for %s", client.Username),
		Body:       body.String(),
	}
}
