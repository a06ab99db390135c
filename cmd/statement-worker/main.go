// The statement worker periodically pulls bank statement PDFs from a Gmail
// mailbox, parses them and commits the rows through the same batch path the
// API uses. Duplicate rows from overlapping statements are skipped.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/gmail"
	"fintrack/internal/log"
	"fintrack/internal/parsers"
	"fintrack/internal/pdfext"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logCfg := log.DefaultConfig()
	logCfg.Component = log.ComponentWorker
	logger := log.New(logCfg)
	log.SetDefault(logger)

	logger.Info("Starting statement-worker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		}
	}

	txService := services.NewTransactionService(repo, amqpClient)
	defer txService.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drain import events published by the API so operators see batch
	// commits in the worker log alongside the fetch passes.
	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeImportEvents(ctx, func(msg *amqp.ImportEventMessage) error {
				logger.InfoContext(ctx, "Import event received",
					"event", msg.Event,
					log.FieldAccountID, msg.AccountID,
					"source", msg.Source,
					"inserted", msg.Inserted,
					"skipped", msg.Skipped)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorContext(ctx, "Import event consumer stopped", log.FieldError, err)
			}
		}()
	}

	fetcher, err := gmail.NewFromFiles(ctx, cfg.GoogleOAuthClientFile, cfg.GoogleOAuthTokenFile, cfg.GmailLabel, cfg.GmailQuery)
	if err != nil {
		logger.Error("Failed to initialize Gmail fetcher", "error", err)
		os.Exit(1)
	}

	worker := &worker{
		txService:  txService,
		amqpClient: amqpClient,
		fetcher:    fetcher,
		cfg:        cfg,
		logger:     logger,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.FetchSchedule, func() { worker.run(ctx) }); err != nil {
		logger.Error("Invalid fetch schedule", "schedule", cfg.FetchSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Fetch schedule active", "schedule", cfg.FetchSchedule)

	// One immediate pass so a restart doesn't wait for the next tick.
	worker.run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("Timed out waiting for running jobs")
	}
	cancel()
	logger.Info("Worker stopped gracefully")
}

type worker struct {
	txService  *services.TransactionService
	amqpClient *amqp.Client
	fetcher    *gmail.Fetcher
	cfg        *config.Config
	logger     *log.Logger
}

// run performs one fetch pass: download statements, parse, commit.
// Individual statement failures are logged and skipped so one bad PDF does
// not block the rest of the mailbox.
func (w *worker) run(ctx context.Context) {
	statements, err := w.fetcher.FetchStatements(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to fetch statements", log.FieldError, err)
		return
	}
	if len(statements) == 0 {
		w.logger.InfoContext(ctx, "No new statements")
		return
	}

	parser, err := parsers.ForBank(w.cfg.FetchBankCode)
	if err != nil {
		w.logger.ErrorContext(ctx, "No parser for bank",
			log.FieldBankCode, w.cfg.FetchBankCode, log.FieldError, err)
		return
	}

	for _, st := range statements {
		if err := w.importStatement(ctx, parser, st); err != nil {
			w.logger.ErrorContext(ctx, "Failed to import statement",
				log.FieldFileName, st.Filename, log.FieldError, err)
			continue
		}
		if err := w.fetcher.MarkProcessed(ctx, st.MessageID); err != nil {
			w.logger.WarnContext(ctx, "Failed to mark message processed",
				"message_id", st.MessageID, log.FieldError, err)
		}
	}
}

func (w *worker) importStatement(ctx context.Context, parser parsers.StatementParser, st gmail.Statement) error {
	text, err := pdfext.ExtractText(st.Data, w.cfg.StatementPassword)
	if err != nil {
		return err
	}

	parsed, err := parser.ParseStatement(text)
	if err != nil {
		return err
	}
	if len(parsed.Rows) == 0 {
		w.logger.InfoContext(ctx, "Statement has no rows", log.FieldFileName, st.Filename)
		return nil
	}

	result, err := w.txService.CommitBatch(ctx, w.cfg.FetchAccountID, parsed.Rows, "gmail")
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Statement imported",
		log.FieldFileName, st.Filename,
		log.FieldAccountID, w.cfg.FetchAccountID,
		"inserted", result.Inserted,
		"skipped", result.Skipped)

	if w.amqpClient != nil {
		msg := amqp.NewStatementFetchedMessage(w.cfg.FetchAccountID, "gmail")
		if err := w.amqpClient.PublishImportEvent(ctx, msg); err != nil {
			w.logger.WarnContext(ctx, "Failed to publish fetch event", log.FieldError, err)
		}
	}
	return nil
}
