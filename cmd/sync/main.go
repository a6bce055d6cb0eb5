package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"

	"github.com/noisycontents/uzu-orders/internal/config"
	"github.com/noisycontents/uzu-orders/internal/events"
	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/pipeline"
)

// cliModes maps the CLI mode names to the pipeline modes.
var cliModes = map[string]string{
	"imweb":           pipeline.ModeImwebRange,
	"daily":           pipeline.ModeImwebDaily,
	"single":          pipeline.ModeImwebSingleDate,
	"full-refresh":    pipeline.ModeFullRefresh,
	"recover-csv":     pipeline.ModeRecoverCSV,
	"retry-missing":   pipeline.ModeRetryMissing,
	"woocommerce":     pipeline.ModeWoocommerce,
	"csv-imweb":       pipeline.ModeCSVImweb,
	"csv-woocommerce": pipeline.ModeCSVWoocommerce,
}

func main() {
	var (
		mode  = flag.String("mode", "daily", "operating mode: imweb|daily|single|full-refresh|recover-csv|retry-missing|woocommerce|csv-imweb|csv-woocommerce")
		from  = flag.String("from", "", "range start date (2006-01-02, KST), for -mode imweb")
		to    = flag.String("to", "", "range end date (2006-01-02, KST), for -mode imweb")
		date  = flag.String("date", "", "single date (2006-01-02, KST)")
		file  = flag.String("file", "", "CSV/XLSX export path, for the csv and recover modes")
		yes   = flag.Bool("yes", false, "confirm the full refresh (deletes every stored row first)")
		quiet = flag.Bool("quiet", false, "suppress progress bars")
	)
	flag.Parse()

	pipelineMode, ok := cliModes[*mode]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n\n", *mode)
		flag.Usage()
		os.Exit(2)
	}

	opts := pipeline.Options{From: *from, To: *to, Date: *date, File: *file, Confirm: *yes}
	if err := checkFlags(pipelineMode, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	logger := logger.New(cfg.LogLevel)

	runner := pipeline.New(cfg, buildReporter(cfg, logger), logger)
	if !*quiet {
		runner.OnProgress = barProgress()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, pipelineMode, opts)
	if err != nil {
		if errors.Is(err, pipeline.ErrConfirmRequired) {
			fmt.Fprintln(os.Stderr, "full refresh deletes every stored row; re-run with -yes to confirm")
			os.Exit(2)
		}
		logger.Error("Run %s failed: %v", res.RunID, err)
		os.Exit(1)
	}

	logger.Info("Run %s finished: %d orders, %d rows, %d stored, %d failed batches",
		res.RunID, res.Collected, res.Rows, res.Stored, res.FailedBatches)
}

// checkFlags rejects flag combinations before any credential or network
// work, so usage errors exit 2 instead of burning a run.
func checkFlags(mode string, opts pipeline.Options) error {
	switch mode {
	case pipeline.ModeImwebRange:
		if opts.From == "" || opts.To == "" {
			return errors.New("-mode imweb needs -from and -to")
		}
	case pipeline.ModeImwebSingleDate:
		if opts.Date == "" {
			return errors.New("-mode single needs -date")
		}
	case pipeline.ModeRecoverCSV, pipeline.ModeCSVImweb, pipeline.ModeCSVWoocommerce:
		if opts.File == "" {
			return errors.New("this mode needs -file")
		}
	}
	return nil
}

// barProgress renders the per-order detail loop as a progress bar. The bar
// is created lazily on the first callback and finished when the loop
// completes.
func barProgress() func(done, total int) {
	var bar *pb.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = pb.StartNew(total)
		}
		bar.SetCurrent(int64(done))
		if done >= total {
			bar.Finish()
			bar = nil
		}
	}
}

func buildReporter(cfg *config.Config, logger *logger.Logger) events.Reporter {
	logReporter := events.NewLogReporter(logger)
	if cfg.KafkaBrokers == "" {
		return logReporter
	}
	return events.NewMultiReporter(logReporter, events.NewKafkaReporter(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
}
