package main

import (
	"context"

	"training-launcher/core/dataset"
	"training-launcher/core/executor"
	"training-launcher/core/monitoring"
	"training-launcher/core/optimizer"
	"training-launcher/core/pipeline"
	"training-launcher/core/repository"
	"training-launcher/core/session"
	awsprovider "training-launcher/providers/aws"
	"training-launcher/storage"

	"github.com/spf13/afero"
)

// app holds the clients and stores one command works with
type app struct {
	fs       afero.Fs
	aws      *awsprovider.Client
	store    storage.ObjectStore
	locators storage.LocatorStore
	costs    *monitoring.CostTracker

	// Run history, nil without DATABASE_URL
	db     *repository.DB
	runs   *repository.RunRepository
	events *repository.EventRepository
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApp connects to the stores. AWS clients are only created when needed so
// that dataset preparation and locator reads work offline.
func newApp(ctx context.Context, withAWS bool) (*app, error) {
	a := &app{
		fs:       afero.NewOsFs(),
		costs:    monitoring.NewCostTracker(),
		locators: storage.NewFileLocatorStore(afero.NewOsFs(), cfg.LocatorStorePath),
	}

	if cfg.DatabaseURL != "" {
		db, err := repository.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.runs = repository.NewRunRepository(db)
		a.events = repository.NewEventRepository(db)
		a.locators = repository.NewLocatorRepository(db)
	}

	if withAWS {
		client, err := awsprovider.NewClient(ctx, awsprovider.ClientOptions{
			Region:            cfg.AWSRegion,
			S3Endpoint:        cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.aws = client
		a.store = storage.NewS3ObjectStore(client.S3, client.Region)
	}

	return a, nil
}

func (a *app) hub() *dataset.HubClient {
	return dataset.NewHubClient(cfg.DatasetsServerURL, cfg.HFToken)
}

func (a *app) pipeline() *pipeline.Pipeline {
	var recorder monitoring.Recorder
	var runs pipeline.RunRecorder
	if a.runs != nil {
		recorder = a.runs
		runs = a.runs
	}

	return pipeline.New(pipeline.Deps{
		Sessions: session.NewInitializer(a.aws.STS, a.store),
		SessionOptions: session.Options{
			Region:  a.aws.Region,
			RoleARN: cfg.RoleARN,
			Bucket:  cfg.DefaultBucket,
		},
		Hub:       a.hub(),
		Fs:        a.fs,
		Store:     a.store,
		Executor:  executor.NewTrainingExecutor(a.aws.SageMaker, a.store, a.fs),
		Monitor:   monitoring.NewJobMonitor(a.aws.SageMaker, cfg.PollInterval, a.costs, recorder),
		Locators:  a.locators,
		Runs:      runs,
		Estimator: optimizer.NewCostEstimator(a.aws.Pricing, 0),
		Costs:     a.costs,
	})
}
