package migrate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yusufsyaifudin/pdfmailer/pkg/migration"
)

type fakeImmigration struct {
	upErr     error
	downSteps int
	records   []migration.Record
}

func (f *fakeImmigration) Up(context.Context) (int, error) {
	return 3, f.upErr
}

func (f *fakeImmigration) Down(_ context.Context, steps int) (int, error) {
	f.downSteps = steps
	return steps, nil
}

func (f *fakeImmigration) Status(context.Context) ([]migration.Record, error) {
	return f.records, nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("up", func(t *testing.T) {
		require.NoError(t, run(ctx, &fakeImmigration{}, []string{"UP"}))
		assert.Error(t, run(ctx, &fakeImmigration{upErr: errors.New("boom")}, []string{"up"}))
	})

	t.Run("down default one step", func(t *testing.T) {
		mig := &fakeImmigration{}
		require.NoError(t, run(ctx, mig, []string{"down"}))
		assert.Equal(t, 1, mig.downSteps)

		require.NoError(t, run(ctx, mig, []string{"down", "2"}))
		assert.Equal(t, 2, mig.downSteps)

		assert.Error(t, run(ctx, mig, []string{"down", "zero"}))
		assert.Error(t, run(ctx, mig, []string{"down", "0"}))
	})

	t.Run("print", func(t *testing.T) {
		mig := &fakeImmigration{records: []migration.Record{
			{ID: "1696118400_create_users_table", AppliedAt: time.Now()},
			{ID: "1696118460_create_documents_table"},
		}}
		assert.NoError(t, run(ctx, mig, []string{"print"}))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, run(ctx, &fakeImmigration{}, []string{"sideways"}))
	})
}

func TestCmd_NoArgs(t *testing.T) {
	cmd, err := NewCmd()()
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.Synopsis())
	assert.Equal(t, cli.RunResultHelp, cmd.Run(nil))
}
