package expr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnbuild/kiln/internal/expr"
)

func evalIn(t *testing.T, source string, env expr.Env) any {
	t.Helper()
	e, err := expr.Parse(source)
	require.NoError(t, err)
	v, err := expr.NewInterpreter(env).Evaluate(e)
	require.NoError(t, err)
	return v
}

func TestInterpreter_Arithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   any
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"10 / 4", 2.5},
		{"-5 + 2", -3.0},
		{`"a" + "b"`, "ab"},
		{"1 == 1", true},
		{"1 == 2", false},
		{`"a" != "b"`, true},
		{`1 == "1"`, false},
		{"null == null", true},
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 4", false},
		{"4 >= 4", true},
		{"!false", true},
		{"not null", true},
		{"true and 3", 3.0},
		{"false and 3", false},
		{"null or \"x\"", "x"},
		{"\"x\" or \"y\"", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, evalIn(t, tt.source, nil))
		})
	}
}

func TestInterpreter_EnvLookup(t *testing.T) {
	env := expr.MapEnv{
		"os": "linux",
		"env": map[string]string{
			"CI":         "true",
			"CARGO_HOME": "/ci/cargo",
		},
		"job": map[string]any{
			"status": "success",
			"forced": false,
		},
	}

	assert.Equal(t, "linux", evalIn(t, "os", env))
	assert.Equal(t, "true", evalIn(t, `env.CI`, env))
	assert.Equal(t, true, evalIn(t, `env.CARGO_HOME == "/ci/cargo"`, env))
	assert.Equal(t, true, evalIn(t, `job.status == "success" and env.CI == "true"`, env))
	assert.Equal(t, false, evalIn(t, "job.forced", env))

	// Unbound variables and missing properties resolve to null.
	assert.Nil(t, evalIn(t, "missing", env))
	assert.Nil(t, evalIn(t, "env.MISSING", env))
	assert.Nil(t, evalIn(t, "missing.property", env))
	assert.Equal(t, true, evalIn(t, `env.MISSING == null`, env))
}

func TestInterpreter_EvaluateBool(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"true", true},
		{"false", false},
		{"null", false},
		{"0", true}, // only null and false are falsey
		{`""`, true},
		{"1 > 2 or 2 > 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			e, err := expr.Parse(tt.source)
			require.NoError(t, err)
			got, err := expr.NewInterpreter(nil).EvaluateBool(e)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpreter_TypeErrors(t *testing.T) {
	tests := []string{
		`-"a"`,
		`1 + "a"`,
		`"a" < "b"`,
		`true * 2`,
		`1 / 0`,
		`"a".b`,
	}

	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			e, err := expr.Parse(source)
			require.NoError(t, err)
			_, err = expr.NewInterpreter(nil).Evaluate(e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, expr.ErrEval))
		})
	}
}

func TestInterpreter_ShortCircuitSkipsRightErrors(t *testing.T) {
	// The right operand would be a type error, but it is never evaluated.
	e, err := expr.Parse(`false and (1 + "a")`)
	require.NoError(t, err)
	v, err := expr.NewInterpreter(nil).Evaluate(e)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", expr.FormatValue(nil))
	assert.Equal(t, "3", expr.FormatValue(3.0))
	assert.Equal(t, "3.5", expr.FormatValue(3.5))
	assert.Equal(t, "hi", expr.FormatValue("hi"))
	assert.Equal(t, "true", expr.FormatValue(true))
}
