package main

import (
	// Go Internal Packages
	"context"

	// Local Packages
	admin "pix-stream/admin"
	config "pix-stream/config"
	models "pix-stream/models"
	memory "pix-stream/repositories/memory"
	mongodb "pix-stream/repositories/mongodb"
	cache "pix-stream/repositories/redis"
	deadletter "pix-stream/services/deadletter"
	devolutions "pix-stream/services/devolutions"
	payments "pix-stream/services/payments"
	refunds "pix-stream/services/refunds"
	transitions "pix-stream/services/transitions"

	// External Packages
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openRedis connects to the configured redis, or to an embedded one under
// the test profile. The returned func releases both.
func openRedis(ctx context.Context, conf config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	uri := conf.Redis.URI
	release := func() {}
	if conf.IsTestProfile() {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("test profile: redis is embedded", zap.String("addr", mr.Addr()))
		uri, release = mr.Addr(), mr.Close
	}

	client, err := cache.Connect(ctx, uri, conf.Redis.Password)
	if err != nil {
		release()
		return nil, nil, err
	}
	return client, func() {
		_ = client.Close()
		release()
	}, nil
}

type blockList interface {
	Add(ctx context.Context, document, reason string) error
	Contains(ctx context.Context, document string) (bool, error)
	Remove(ctx context.Context, document string) error
}

// stores is the persistence of every family, durable or in-memory.
type stores struct {
	payments           payments.Repository
	deposits           transitions.Store[*models.Deposit]
	devolutions        devolutions.Repository
	infractions        transitions.Store[*models.Infraction]
	refunds            refunds.Repository
	frauds             transitions.Store[*models.FraudDetection]
	warnings           transitions.Store[*models.WarningDeposit]
	warningDevolutions transitions.Store[*models.WarningDevolution]
	transfers          transitions.Store[*models.BankingTransfer]
	notifications      transitions.Store[*models.Notification]
	failed             deadletter.FailedStore
	blockList          blockList
	check              admin.Check
	close              func(ctx context.Context) error
}

// openStores connects to mongodb, or keeps everything in memory under the
// test profile.
func openStores(ctx context.Context, conf config.Config, logger *zap.Logger) (*stores, error) {
	if conf.IsTestProfile() {
		logger.Warn("test profile: repositories are in memory")
		return &stores{
			payments:           memory.NewStore[models.Payment, *models.Payment](),
			deposits:           memory.NewStore[models.Deposit, *models.Deposit](),
			devolutions:        memory.NewDevolutions(),
			infractions:        memory.NewStore[models.Infraction, *models.Infraction](),
			refunds:            memory.NewRefunds(),
			frauds:             memory.NewStore[models.FraudDetection, *models.FraudDetection](),
			warnings:           memory.NewStore[models.WarningDeposit, *models.WarningDeposit](),
			warningDevolutions: memory.NewStore[models.WarningDevolution, *models.WarningDevolution](),
			transfers:          memory.NewStore[models.BankingTransfer, *models.BankingTransfer](),
			notifications:      memory.NewStore[models.Notification, *models.Notification](),
			failed:             memory.NewFailedTransitions(),
			blockList:          memory.NewBlockList(conf.Warning.BlockedDocuments...),
			check:              func(context.Context) error { return nil },
			close:              func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.Connect(ctx, conf.Mongo.URI)
	if err != nil {
		return nil, err
	}
	repos, err := mongodb.NewRepositories(ctx, client, conf.Mongo.Database)
	if err != nil {
		return nil, err
	}
	return &stores{
		payments:           repos.Payments,
		deposits:           repos.Deposits,
		devolutions:        repos.Devolutions,
		infractions:        repos.Infractions,
		refunds:            repos.Refunds,
		frauds:             repos.FraudDetections,
		warnings:           repos.WarningDeposits,
		warningDevolutions: repos.WarningDevolutions,
		transfers:          repos.BankingTransfers,
		notifications:      repos.Notifications,
		failed:             repos.FailedTransitions,
		blockList:          repos.BlockList,
		check:              func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:              client.Disconnect,
	}, nil
}
