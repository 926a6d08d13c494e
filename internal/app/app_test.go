package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kilnbuild/kiln/internal/app"
	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports"
	"github.com/kilnbuild/kiln/internal/core/ports/mocks"
	"github.com/kilnbuild/kiln/internal/engine/scheduler"
)

type appFixture struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	store    *mocks.MockCacheStore
	app      *app.App
}

func newAppFixture(t *testing.T, ctrl *gomock.Controller) *appFixture {
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

	f := &appFixture{
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
	f.app = app.New(f.loader, sched, f.store, tracer, logger)
	return f
}

func singleJobPipeline(t *testing.T) *domain.Pipeline {
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

func TestApp_Run_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAppFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(singleJobPipeline(t), nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	err := f.app.Run(context.Background(), app.RunOptions{})
	require.NoError(t, err)
}

func TestApp_Run_JobFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAppFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(singleJobPipeline(t), nil)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&domain.StepError{ExitCode: 1, Err: domain.ErrStepFailed})

	err := f.app.Run(context.Background(), app.RunOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrRunFailed)
}

func TestApp_Run_LoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAppFixture(t, ctrl)

	f.loader.EXPECT().Load(".").Return(nil, domain.ErrJobNotFound)

	err := f.app.Run(context.Background(), app.RunOptions{})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrRunFailed)
}

func TestApp_Clean(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAppFixture(t, ctrl)

	f.store.EXPECT().Prune().Return(nil)

	require.NoError(t, f.app.Clean(context.Background()))
}
