package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/repository/firestore"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// defaultFirestoreDatabaseID is used when --firestore-database-id is omitted
const defaultFirestoreDatabaseID = "(default)"

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("BABBELL_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("BABBELL_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for Firestore collection names",
				Sources:     cli.EnvVars("BABBELL_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collectionPrefix", collectionPrefix,
				"dryRun", dryRun)

			if databaseID == "" {
				databaseID = defaultFirestoreDatabaseID
			}
			indexConfig := getIndexConfig(collectionPrefix)

			client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
				names := make([]string, 0, len(indexConfig.Collections))
				for _, col := range indexConfig.Collections {
					names = append(names, col.Name)
				}

				current, err := client.Import(ctx, names...)
				if err != nil {
					return goerr.Wrap(err, "failed to import current indexes")
				}
				diff, err := client.DiffConfigs(current)
				if err != nil {
					return goerr.Wrap(err, "failed to compare index configuration")
				}

				logMigrationPlan(logger, diff)
				return nil
			}

			logger.Info("Applying migrations")
			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

// logMigrationPlan reports the index changes a migration would make
func logMigrationPlan(logger *slog.Logger, diff *fireconf.DiffResult) {
	if diff == nil || len(diff.Collections) == 0 {
		logger.Info("No changes required")
		return
	}

	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			logger.Info("Index to create",
				"collection", col.Name,
				"fields", indexFieldPaths(idx))
		}
		for _, idx := range col.IndexesToDelete {
			logger.Warn("Index to delete",
				"collection", col.Name,
				"fields", indexFieldPaths(idx))
		}
	}
}

func indexFieldPaths(idx fireconf.Index) []string {
	paths := make([]string, len(idx.Fields))
	for i, f := range idx.Fields {
		paths[i] = f.Path
	}
	return paths
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig(collectionPrefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.UsersCollectionName(collectionPrefix),
				Indexes: []fireconf.Index{
					// ListSubscribed: is_subscribed ==, user_id ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "is_subscribed", Order: fireconf.OrderAscending},
							{Path: "user_id", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
