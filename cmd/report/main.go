// Command report runs one month through the pipeline: optional statement
// import, installment expansion, duplicate cleanup, and Markdown reports.
// With -project it also prints a net-worth projection.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/forecast"
	applog "financas/internal/log"
	"financas/internal/report"
	"financas/internal/services"
	"financas/internal/sheets"
	"financas/internal/storage"
)

type options struct {
	month     string
	statement string
	plans     bool
	expand    bool
	backfill  string
	dedupe    bool
	reconcile bool
	sheets    bool
	notify    bool
	project   int
	outDir    string
}

func main() {
	var opts options
	flag.StringVar(&opts.month, "month", "", "month to process as YYYY-MM (default: current month)")
	flag.StringVar(&opts.statement, "import", "", "statement file to import before reporting")
	flag.BoolVar(&opts.plans, "plans", true, "register installment plans for imported n/m charges")
	flag.BoolVar(&opts.expand, "expand", true, "generate installment entries for the month")
	flag.StringVar(&opts.backfill, "backfill", "", "also expand installments for every month from YYYY-MM up to -month")
	flag.BoolVar(&opts.dedupe, "dedupe", true, "remove content duplicates in the month")
	flag.BoolVar(&opts.reconcile, "reconcile", true, "list probable duplicates for review")
	flag.BoolVar(&opts.sheets, "sheets", false, "export the summary to Google Sheets")
	flag.BoolVar(&opts.notify, "notify", false, "send the month's alerts to the configured channels")
	flag.IntVar(&opts.project, "project", 0, "print a Monte Carlo net-worth projection over this many years")
	flag.StringVar(&opts.outDir, "out", "", "reports directory (default: REPORTS_DIR)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReport)
	cfg := cli.LoadAndValidateConfig(logger)
	profile := cli.LoadProfile(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg, profile, repo, opts); err != nil {
		logger.Error("Report run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *applog.Logger, cfg *config.Config, profile config.Profile, repo *storage.SQLiteRepository, opts options) error {
	svc := services.NewFinanceService(repo, profile, nil)

	m := core.MonthOf(svc.Now())
	if opts.month != "" {
		var err error
		if m, err = core.ParseMonth(opts.month); err != nil {
			return err
		}
	}
	if opts.outDir == "" {
		opts.outDir = cfg.ReportsDir
	}

	if opts.statement != "" {
		if err := importStatement(ctx, logger, cfg, repo, opts); err != nil {
			return err
		}
	}

	if opts.backfill != "" {
		from, err := core.ParseMonth(opts.backfill)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		if !from.Before(m) {
			return fmt.Errorf("backfill: %s is not before %s", from, m)
		}
		results, err := svc.Expander().ExpandRange(ctx, from, m.AddMonths(-1))
		created := 0
		for _, r := range results {
			created += r.Created
		}
		logger.InfoContext(ctx, "Installment backfill complete", "from", from.String(), "months", len(results), "created", created)
		if err != nil {
			return fmt.Errorf("backfill installments: %w", err)
		}
	}

	if opts.expand {
		res, err := svc.GenerateInstallmentTransactions(ctx, m.Year, m.Month)
		if err != nil {
			return fmt.Errorf("expand installments: %w", err)
		}
		for _, f := range res.Failures {
			logger.WarnContext(ctx, "Installment plan not expanded", "plan_id", f.PlanID, "description", f.Description, "error", f.Err)
		}
	}

	if opts.dedupe {
		removed, err := svc.RemoveDuplicates(ctx, m.Year, m.Month)
		if err != nil {
			return fmt.Errorf("remove duplicates: %w", err)
		}
		if removed > 0 {
			fmt.Printf("🧹 %d duplicata(s) removida(s)\n", removed)
		}
	}

	if opts.reconcile {
		pairs, err := services.NewReconciler(repo).Scan(ctx, m)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		for _, p := range pairs {
			fmt.Printf("🔎 possível duplicata: #%d %q (%s) x #%d %q (%s), %s, similaridade %.0f%%\n",
				p.A.ID, p.A.Description, p.A.Date.ISO(),
				p.B.ID, p.B.Description, p.B.Date.ISO(),
				p.A.Amount, p.Similarity*100)
		}
	}

	summary, err := svc.GetPartitionedSummary(ctx, m.Year, m.Month)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	txns, err := svc.ListTransactions(ctx, storage.TransactionFilter{Month: &m, Limit: report.MaxTransactions})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	alerts, err := svc.CheckAlerts(ctx, m.Year, m.Month)
	if err != nil {
		return fmt.Errorf("check alerts: %w", err)
	}

	now := svc.Now()
	monthly, err := report.Monthly(report.MonthlyData{Summary: summary, Transactions: txns, GeneratedAt: now})
	if err != nil {
		return err
	}
	digest, err := report.Alerts(report.AlertData{
		Month:         m,
		Alerts:        alerts,
		SavingsRate:   summary.SavingsRate,
		SavingsTarget: profile.SavingsTarget,
		Income:        summary.Income,
		GeneratedAt:   now,
	})
	if err != nil {
		return err
	}
	for kind, content := range map[string]string{"relatorio": monthly, "alertas": digest} {
		path, err := report.Write(opts.outDir, report.FileName(kind, m), content)
		if err != nil {
			return err
		}
		fmt.Printf("📄 %s\n", path)
	}

	if opts.notify && len(alerts) > 0 {
		dispatcher, err := cli.BuildDispatcher(cfg)
		if err != nil {
			return err
		}
		if _, err := dispatcher.SendAlerts(ctx, alerts, "report"); err != nil {
			logger.WarnContext(ctx, "Some notifications failed", "error", err)
		}
	}

	if opts.sheets {
		client, err := cli.OpenSheets(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open sheets: %w", err)
		}
		if client == nil {
			return fmt.Errorf("sheets export requested but GOOGLE_SPREADSHEET_ID is not set")
		}
		if err := client.WriteSummary(ctx, summary); err != nil {
			return fmt.Errorf("export summary: %w", err)
		}
		if err := client.AppendAlerts(ctx, alerts); err != nil {
			return fmt.Errorf("export alerts: %w", err)
		}
		read, err := client.ReadSummary(ctx, m)
		if err != nil {
			return fmt.Errorf("read back summary: %w", err)
		}
		for _, d := range sheets.VerifySummary(summary, read) {
			logger.WarnContext(ctx, "Exported summary differs from ledger", "month", m.String(), "diff", d)
		}
		fmt.Println("📊 resumo exportado para o Google Sheets")
	}

	if opts.project > 0 {
		if err := projectWealth(svc.Now(), profile, opts.project); err != nil {
			return err
		}
	}
	return nil
}

func projectWealth(now time.Time, profile config.Profile, years int) error {
	w := profile.Wealth
	savings := core.Money{Cents: int64(math.Round(float64(profile.MonthlyIncome.Cents) * profile.SavingsTarget / 100))}
	p, err := forecast.ProjectWealth(forecast.WealthParams{
		Current:        w.CurrentAssets,
		MonthlySavings: savings,
		ExpectedReturn: w.ExpectedReturn,
		Volatility:     w.Volatility,
		Inflation:      w.Inflation,
		Years:          years,
		Simulations:    1000,
	}, rand.New(rand.NewSource(now.UnixNano())))
	if err != nil {
		return fmt.Errorf("project wealth: %w", err)
	}
	fmt.Printf("📈 patrimônio em %d anos (%d simulações, poupança %s/mês)\n", p.Years, p.Simulations, savings)
	fmt.Printf("   p10 %s | p25 %s | mediana %s | p75 %s | p90 %s\n", p.P10, p.P25, p.Median, p.P75, p.P90)
	return nil
}

func importStatement(ctx context.Context, logger *applog.Logger, cfg *config.Config, repo *storage.SQLiteRepository, opts options) error {
	f, err := os.Open(opts.statement)
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	im := services.NewImporter(repo, cli.LoadCategorizer(logger, cfg), opts.plans)
	res, err := im.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", opts.statement, err)
	}
	for _, e := range res.Errors {
		logger.WarnContext(ctx, "Statement line skipped", "error", e)
	}
	fmt.Printf("📥 %d importada(s), %d duplicada(s), %d sem categoria, %d parcelamento(s) novo(s), %d vinculada(s), %d já lançada(s)\n",
		res.Imported, res.Duplicates, res.Uncategorized, res.PlansCreated, res.PlansLinked, res.Materialized)
	return nil
}
