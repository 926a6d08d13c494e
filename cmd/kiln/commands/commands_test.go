package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kilnbuild/kiln/cmd/kiln/commands"
	"github.com/kilnbuild/kiln/internal/app"
	"github.com/kilnbuild/kiln/internal/build"
	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
	"github.com/kilnbuild/kiln/internal/core/ports/mocks"
	"github.com/kilnbuild/kiln/internal/engine/scheduler"
)

type cliFixture struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	store    *mocks.MockCacheStore
	cli      *commands.CLI
}

func newCLIFixture(t *testing.T, ctrl *gomock.Controller) *cliFixture {
	t.Helper()

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		return len(p), nil
	}).AnyTimes()

	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		}).AnyTimes()
	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any()).AnyTimes()
	tracer.EXPECT().Close().Return(nil).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	f := &cliFixture{
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		store:    mocks.NewMockCacheStore(ctrl),
	}

	sched := scheduler.NewScheduler(
		f.executor,
		mocks.NewMockHasher(ctrl),
		f.store,
		mocks.NewMockVerifier(ctrl),
		tracer,
		logger,
	)
	f.cli = commands.New(app.New(f.loader, sched, f.store, tracer, logger))
	return f
}

func buildPipeline(t *testing.T) *domain.Pipeline {
	t.Helper()
	g := domain.NewGraph()
	require.NoError(t, g.AddJob(&domain.Job{
		Name: domain.NewInternedString("build"),
		Steps: []domain.Step{
			{Name: domain.NewInternedString("compile"), Run: "make"},
		},
	}))
	require.NoError(t, g.Validate())
	return &domain.Pipeline{Jobs: g}
}

func TestRunCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(buildPipeline(t), nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	f.cli.SetArgs([]string{"run", "build"})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestRunCommand_NoArgsRunsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(buildPipeline(t), nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	f.cli.SetArgs([]string{"run"})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestRunCommand_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(buildPipeline(t), nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.StepError{ExitCode: 1, Err: domain.ErrStepFailed})

	f.cli.SetArgs([]string{"run", "build"})
	err := f.cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrRunFailed)
}

func TestCleanCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	f.store.EXPECT().Prune().Return(nil)

	f.cli.SetArgs([]string{"clean"})
	require.NoError(t, f.cli.Execute(context.Background()))
}

func TestVersionCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	var out bytes.Buffer
	f.cli.SetOut(&out)
	f.cli.SetArgs([]string{"version"})
	require.NoError(t, f.cli.Execute(context.Background()))

	assert.Equal(t, build.Version, strings.TrimSpace(out.String()))
}

func TestExprCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Setenv("KILN_EXPR_TEST", "yes")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "arithmetic", args: []string{"expr", "1 + 2 * 3"}, want: "7"},
		{name: "logic", args: []string{"expr", "true and not false"}, want: "true"},
		{name: "env lookup", args: []string{"expr", `env.KILN_EXPR_TEST == "yes"`}, want: "true"},
		{name: "unbound identifier", args: []string{"expr", "nope"}, want: "null"},
		{name: "ast", args: []string{"expr", "--ast", "1 + 2"}, want: "(+ 1 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCLIFixture(t, ctrl)

			var out bytes.Buffer
			f.cli.SetOut(&out)
			f.cli.SetArgs(tt.args)
			require.NoError(t, f.cli.Execute(context.Background()))

			assert.Equal(t, tt.want, strings.TrimSpace(out.String()))
		})
	}
}

func TestExprCommand_File(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	path := filepath.Join(t.TempDir(), "exprs.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 + 2\n\n\"a\" + \"b\"\n"), 0o600))

	var out bytes.Buffer
	f.cli.SetOut(&out)
	f.cli.SetArgs([]string{"expr", "--file", path})
	require.NoError(t, f.cli.Execute(context.Background()))

	assert.Equal(t, []string{"3", "ab"}, strings.Fields(out.String()))
}

func TestExprCommand_ParseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCLIFixture(t, ctrl)

	var errOut bytes.Buffer
	f.cli.SetErr(&errOut)
	f.cli.SetArgs([]string{"expr", "1 +"})
	require.Error(t, f.cli.Execute(context.Background()))
	assert.Contains(t, errOut.String(), "Error")
}
