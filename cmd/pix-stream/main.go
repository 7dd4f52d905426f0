package main

import (
	// Go Internal Packages
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Local Packages
	admin "pix-stream/admin"
	config "pix-stream/config"
	gateways "pix-stream/gateways"
	kafka "pix-stream/kafka"
	logger "pix-stream/logger"
	cache "pix-stream/repositories/redis"
	deposits "pix-stream/services/deposits"
	devolutions "pix-stream/services/devolutions"
	emitter "pix-stream/services/emitter"
	frauds "pix-stream/services/frauds"
	infractions "pix-stream/services/infractions"
	jobs "pix-stream/services/jobs"
	notifications "pix-stream/services/notifications"
	observers "pix-stream/services/observers"
	payments "pix-stream/services/payments"
	refunds "pix-stream/services/refunds"
	transfers "pix-stream/services/transfers"
	warning "pix-stream/services/warning"

	// External Packages
	"github.com/alecthomas/kingpin/v2"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPathMsg := "Path to the application config file"
	configPath := kingpin.Flag("config", configPathMsg).Short('c').Default("config.yml").String()
	kingpin.Parse()

	appKonf, k, err := config.Parse(*configPath, os.Getenv)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Validate the config loaded
	if err = appKonf.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if !appKonf.IsProdMode {
		k.Print()
	}

	lgr, err := logger.New(appKonf.Logger.Level, appKonf.Application)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer func() {
		_ = lgr.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appKonf, lgr); err != nil {
		lgr.Fatal("pix-stream stopped", zap.Error(err))
	}
	lgr.Info("pix-stream stopped")
}

func run(ctx context.Context, appKonf config.Config, lgr *zap.Logger) error {
	// Redis Connection
	redisClient, closeRedis, err := openRedis(ctx, appKonf, lgr)
	if err != nil {
		return err
	}
	defer closeRedis()

	st, err := openStores(ctx, appKonf, lgr)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.close(closeCtx)
	}()

	clientMetrics := map[string]http.Handler{}
	producerMetrics := kprom.NewMetrics("pix_stream_producer")
	clientMetrics["producer"] = producerMetrics.Handler()
	producer, err := kafka.NewProducer(appKonf.Kafka.Brokers, producerMetrics, lgr)
	if err != nil {
		return err
	}
	defer producer.Close()

	now := time.Now
	em := emitter.New(producer, lgr)
	pix := gateways.NewPix(appKonf.Gateway.BaseURL, appKonf.Gateway.Timeout)
	profiles := gateways.NewProfile(appKonf.Gateway.ProfileURL, appKonf.Gateway.Timeout)
	history := cache.NewCache(redisClient)
	parkingLot := cache.NewParkingLot(redisClient, lgr)

	paymentSvc := payments.NewService(st.payments, pix, em, now, lgr)
	duplicate := warning.NewDuplicate(history, appKonf.Warning.DuplicateWindow)
	depositSvc := deposits.NewService(st.deposits, duplicate, em, now, lgr)
	devolutionSvc := devolutions.NewService(st.devolutions, st.deposits, pix, em, now, lgr)
	warningSvc := warning.NewService(st.warnings, st.warningDevolutions, depositSvc, pix, em, now, lgr)
	transferSvc := transfers.NewService(st.transfers, em, now, lgr)
	recorder := notifications.NewRecorder(st.notifications, em, now, lgr)

	incomeRatio, err := warning.NewIncomeRatio(profiles, appKonf.Warning.IncomeRatio)
	if err != nil {
		return err
	}
	hub, err := notifications.Select(appKonf.Hub.Processor,
		notifications.NewDefault(recorder, paymentSvc, depositSvc, devolutionSvc, warningSvc, transferSvc, lgr),
		notifications.NewRecordOnly(recorder),
	)
	if err != nil {
		return err
	}

	observer := observers.New(producer, parkingLot, lgr)
	registrations := observer.Registrations(observers.Services{
		Payments:    paymentSvc,
		Deposits:    depositSvc,
		Devolutions: devolutionSvc,
		Infractions: infractions.NewService(st.infractions, pix, em, now, lgr),
		Refunds:     refunds.NewService(st.refunds, pix, em, now, lgr),
		Frauds:      frauds.NewService(st.frauds, pix, st.blockList, em, now, lgr),
		Warning:     warningSvc,
		Rules: []warning.Evaluator{
			duplicate,
			incomeRatio,
			warning.NewFixedIdentifier(appKonf.Warning.BlockedDocuments, appKonf.Warning.BlockedISPBs),
			warning.NewBlockList(st.blockList),
		},
		Recorder: recorder,
		Hub:      hub,
		Failed:   st.failed,
		Emitter:  em,
		Now:      now,
	})

	g, ctx := errgroup.WithContext(ctx)

	if appKonf.Kafka.Consume {
		for _, reg := range registrations {
			metrics := kprom.NewMetrics("pix_stream_consumer")
			consumer, err := kafka.NewConsumer(appKonf.Kafka.ConsumerConfig(reg.Name, reg.Topics...), reg.Handler, metrics, lgr)
			if err != nil {
				return err
			}
			clientMetrics[reg.Name] = metrics.Handler()
			g.Go(func() error { return consumer.Poll(ctx) })
		}
		lgr.Info("observers started", zap.Int("count", len(registrations)), zap.String("hub", hub.Name()))
	}

	if !appKonf.IsTestProfile() {
		scheduler := jobs.NewScheduler(cache.NewLease(redisClient, lgr), lgr)
		if err := scheduler.Add(jobs.NewSync(pix, history, em, st.deposits, lgr), appKonf.Jobs.Sync); err != nil {
			return err
		}
		if err := scheduler.Add(jobs.NewUpdate(paymentSvc, appKonf.Jobs.Update.StaleAfter, lgr), appKonf.Jobs.Update); err != nil {
			return err
		}
		g.Go(func() error { return scheduler.Start(ctx) })
	}

	checks := map[string]admin.Check{
		"redis":  func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"stores": st.check,
	}
	server := admin.NewServer(checks, parkingLot, producer, clientMetrics, lgr)
	g.Go(func() error { return server.ListenAndServe(ctx, appKonf.Admin.Address) })

	return g.Wait()
}
