package tests

import (
	"context"
	"testing"

	"github.com/antinvestor/service-account/config"
	"github.com/antinvestor/service-account/service/repository"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/frametests/testdef"
	"github.com/stretchr/testify/require"
)

// CreateService boots a frame service against a randomised test database
// and runs migrations. Each caller gets an isolated schema.
func (bs *BaseTestSuite) CreateService(
	t *testing.T,
	depOpts *testdef.DependancyOption,
) (context.Context, *frame.Service) {

	ctx := t.Context()

	var databaseDR testdef.DependancyConn
	for _, res := range bs.Resources() {
		if res.Name() == PostgresqlDBImage {
			databaseDR = res
		}
	}

	testDS, cleanup, err := databaseDR.GetRandomisedDS(ctx, depOpts.Prefix())
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanup(ctx)
	})

	cfg, err := frame.ConfigLoadWithOIDC[config.AccountConfig](ctx)
	require.NoError(t, err)

	cfg.LogLevel = "debug"
	cfg.DatabasePrimaryURL = []string{testDS.String()}
	cfg.DatabaseReplicaURL = []string{testDS.String()}

	ctx, svc := frame.NewServiceWithContext(ctx, "account tests",
		frame.WithConfig(&cfg),
		frame.WithDatastore(),
		frame.WithNoopDriver())

	svc.Init(ctx)

	err = repository.Migrate(ctx, svc, "../../migrations/0001")
	require.NoError(t, err)

	err = svc.Run(ctx, "")
	require.NoError(t, err)

	return ctx, svc
}
