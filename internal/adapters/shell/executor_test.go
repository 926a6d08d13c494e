package shell_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/kilnbuild/kiln/internal/adapters/shell"
	"github.com/kilnbuild/kiln/internal/core/domain"
	"github.com/kilnbuild/kiln/internal/core/ports/mocks"
)

func TestExecutor_Execute_MultiLineOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("line1").Times(1)
	mockLogger.EXPECT().Info("line2").Times(1)

	executor := shell.NewExecutor(mockLogger)

	step := &domain.Step{
		Name: domain.NewInternedString("echo"),
		Run:  "echo line1; echo line2",
	}

	err := executor.Execute(context.Background(), step, nil, io.Discard, io.Discard)
	require.NoError(t, err)
}

func TestExecutor_Execute_StreamsToWriters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Error(gomock.Any()).AnyTimes()

	executor := shell.NewExecutor(mockLogger)

	step := &domain.Step{
		Name: domain.NewInternedString("both"),
		Run:  "echo out; echo err >&2",
	}

	var stdout, stderr bytes.Buffer
	err := executor.Execute(context.Background(), step, nil, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecutor_Execute_EnvironmentPriority(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	// Step env wins over the merged pipeline env.
	mockLogger.EXPECT().Info("from-step").Times(1)

	executor := shell.NewExecutor(mockLogger)

	step := &domain.Step{
		Name: domain.NewInternedString("env"),
		Run:  `echo "$KILN_TEST_VALUE"`,
		Env:  map[string]string{"KILN_TEST_VALUE": "from-step"},
	}

	err := executor.Execute(context.Background(), step, []string{"KILN_TEST_VALUE=from-pipeline"}, io.Discard, io.Discard)
	require.NoError(t, err)
}

func TestExecutor_Execute_WorkingDir(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tmpDir := t.TempDir()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(tmpDir).Times(1)

	executor := shell.NewExecutor(mockLogger)

	step := &domain.Step{
		Name:       domain.NewInternedString("pwd"),
		Run:        "pwd",
		WorkingDir: domain.NewInternedString(tmpDir),
	}

	err := executor.Execute(context.Background(), step, nil, io.Discard, io.Discard)
	require.NoError(t, err)
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	executor := shell.NewExecutor(mockLogger)

	step := &domain.Step{
		Name: domain.NewInternedString("fail"),
		Run:  "exit 3",
	}

	err := executor.Execute(context.Background(), step, nil, io.Discard, io.Discard)
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrStepFailed)

	var stepErr *domain.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 3, stepErr.ExitCode)
}

func TestExecutor_Execute_EmptyRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	executor := shell.NewExecutor(mocks.NewMockLogger(ctrl))

	err := executor.Execute(context.Background(), &domain.Step{Name: domain.NewInternedString("noop")}, nil, io.Discard, io.Discard)
	require.NoError(t, err)
}

func TestExecutor_Execute_ContextCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	executor := shell.NewExecutor(mocks.NewMockLogger(ctrl))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	step := &domain.Step{
		Name: domain.NewInternedString("sleep"),
		Run:  "sleep 10",
	}

	err := executor.Execute(ctx, step, nil, io.Discard, io.Discard)
	require.Error(t, err)
}
