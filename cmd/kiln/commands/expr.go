package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilnbuild/kiln/internal/expr"
)

func (c *CLI) newExprCmd() *cobra.Command {
	var showTokens, showAST bool
	var file string

	cmd := &cobra.Command{
		Use:   "expr [expression]",
		Short: "Evaluate a step condition expression",
		Long: "Evaluate an expression as used in step `if:` conditions and print its\n" +
			"value. Identifiers resolve against the current environment (env.CI) and\n" +
			"the host (os). With --file every non-empty line of the file is\n" +
			"evaluated; without an argument an interactive prompt is started.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := conditionEnv()
			switch {
			case file != "":
				return evalFile(cmd.OutOrStdout(), cmd.ErrOrStderr(), file, env, showTokens, showAST)
			case len(args) > 0:
				return evalLine(cmd.OutOrStdout(), cmd.ErrOrStderr(), strings.Join(args, " "), env, showTokens, showAST)
			default:
				return exprPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), env, showTokens, showAST)
			}
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Evaluate each non-empty line of the given file")
	cmd.Flags().BoolVar(&showTokens, "tokens", false, "Print the token stream instead of evaluating")
	cmd.Flags().BoolVar(&showAST, "ast", false, "Print the parsed expression tree instead of evaluating")
	return cmd
}

func evalFile(out, errOut io.Writer, path string, env expr.Env, showTokens, showAST bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return err
	}

	var firstErr error
	for line := range strings.Lines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := evalLine(out, errOut, line, env, showTokens, showAST); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func exprPrompt(in io.Reader, out, errOut io.Writer, env expr.Env, showTokens, showAST bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Errors are reported but do not end the session.
		_ = evalLine(out, errOut, line, env, showTokens, showAST)
	}
}

func evalLine(out, errOut io.Writer, source string, env expr.Env, showTokens, showAST bool) error {
	if showTokens {
		tokens, ok := expr.NewScanner(source, func(line int, msg string) {
			fmt.Fprintf(errOut, "[line %d] Error: %s\n", line, msg)
		}).ScanTokens()
		if !ok {
			return expr.ErrParse
		}
		for _, tok := range tokens {
			fmt.Fprintln(out, tok)
		}
		return nil
	}

	parsed, err := expr.Parse(source)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}
	if showAST {
		fmt.Fprintln(out, (&expr.Printer{}).Print(parsed))
		return nil
	}

	value, err := expr.NewInterpreter(env).Evaluate(parsed)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return err
	}
	fmt.Fprintln(out, expr.FormatValue(value))
	return nil
}

func conditionEnv() expr.Env {
	return expr.MapEnv{
		"env":   environMap(),
		"os":    runtime.GOOS,
		"force": false,
	}
}

func environMap() map[string]any {
	env := map[string]any{}
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}
