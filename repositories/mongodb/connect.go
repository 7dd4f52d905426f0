package mongodb

import (
	// Go Internal Packages
	"context"
	"time"

	// Local Packages
	models "pix-stream/models"

	// External Packages
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect connects to the mongodb server and returns the client.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	// Set the server selection timeout to 5 seconds.
	timeout := time.Second * 5
	opts := &options.ClientOptions{ServerSelectionTimeout: &timeout}

	client, err := mongo.Connect(ctx, opts.ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the MongoDB server to verify the connection.
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// Repositories groups every family collection of one database.
type Repositories struct {
	Payments           *Collection[models.Payment, *models.Payment]
	Deposits           *Collection[models.Deposit, *models.Deposit]
	Devolutions        *Devolutions
	Infractions        *Collection[models.Infraction, *models.Infraction]
	Refunds            *Refunds
	FraudDetections    *Collection[models.FraudDetection, *models.FraudDetection]
	WarningDeposits    *Collection[models.WarningDeposit, *models.WarningDeposit]
	WarningDevolutions *Collection[models.WarningDevolution, *models.WarningDevolution]
	BankingTransfers   *Collection[models.BankingTransfer, *models.BankingTransfer]
	Notifications      *Notifications
	FailedTransitions  *FailedTransitions
	BlockList          *BlockList
}

// NewRepositories binds every collection and creates their indexes.
func NewRepositories(ctx context.Context, client *mongo.Client, database string) (*Repositories, error) {
	db := client.Database(database)
	r := &Repositories{
		Payments:           NewCollection[models.Payment](db, "payments"),
		Deposits:           NewCollection[models.Deposit](db, "deposits"),
		Devolutions:        &Devolutions{NewCollection[models.Devolution](db, "devolutions")},
		Infractions:        NewCollection[models.Infraction](db, "infractions"),
		Refunds:            &Refunds{NewCollection[models.Refund](db, "refunds")},
		FraudDetections:    NewCollection[models.FraudDetection](db, "fraud_detections"),
		WarningDeposits:    NewCollection[models.WarningDeposit](db, "warning_deposits"),
		WarningDevolutions: NewCollection[models.WarningDevolution](db, "warning_devolutions"),
		BankingTransfers:   NewCollection[models.BankingTransfer](db, "banking_transfers"),
		Notifications:      &Notifications{NewCollection[models.Notification](db, "notifications")},
		FailedTransitions:  &FailedTransitions{coll: db.Collection("failed_transitions")},
		BlockList:          &BlockList{coll: db.Collection("blocklist")},
	}

	indexed := []interface {
		EnsureIndexes(ctx context.Context) error
	}{
		r.Payments, r.Deposits, r.Devolutions, r.Infractions, r.Refunds,
		r.WarningDevolutions, r.BankingTransfers, r.Notifications,
	}
	for _, c := range indexed {
		if err := c.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}
