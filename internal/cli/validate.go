package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/dutkit/internal/bench"
	"github.com/roach88/dutkit/internal/entity"
)

// ValidationError is one problem found in a bench.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// EntitySummary describes a declared entity of a valid bench.
type EntitySummary struct {
	Name   string `json:"name"`
	Design string `json:"design"`
	Model  string `json:"model"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Entities []EntitySummary   `json:"entities,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <bench-dir>",
		Short: "Validate a bench without running it",
		Long: `Validate a CUE bench without running any backend.

Loads every .cue file of the directory, checks the bench, entity and
simulator declarations, and builds each entity's configuration.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, benchDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	spec, errs := bench.Load(benchDir)
	if len(errs) > 0 {
		verrs := toValidationErrors(errs)
		if isLoadFailure(verrs) {
			return outputValidateError(formatter, verrs[0].Code, verrs[0].Message, nil)
		}
		return outputValidationErrors(formatter, verrs)
	}
	formatter.VerboseLog("Loaded %d entit(ies) and %d simulator(s) from %s",
		len(spec.Entities), len(spec.Simulators), benchDir)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := spec.Build(entity.WithLogger(quiet)); err != nil {
		return outputValidationErrors(formatter, toValidationErrors([]error{err}))
	}

	return outputValidateSuccess(formatter, summarize(spec))
}

func summarize(spec *bench.Spec) []EntitySummary {
	out := make([]EntitySummary, 0, len(spec.Entities))
	for _, es := range spec.Entities {
		out = append(out, EntitySummary{Name: es.Name, Design: es.Design, Model: es.Model.String()})
	}
	return out
}

// toValidationErrors flattens bench and entity errors.
func toValidationErrors(errs []error) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var ce *bench.CompileError
		var re *entity.RunError
		switch {
		case errors.As(err, &ce):
			ve := ValidationError{Code: ce.Code, Field: ce.Field, Message: ce.Message}
			if ce.Pos.IsValid() {
				ve.File = ce.Pos.Filename()
				ve.Line = ce.Pos.Line()
			}
			out = append(out, ve)
		case errors.As(err, &re):
			out = append(out, ValidationError{Code: string(re.Code), Field: re.Entity, Message: err.Error()})
		default:
			out = append(out, ValidationError{Code: bench.ErrCodeGeneric, Message: err.Error()})
		}
	}
	return out
}

// isLoadFailure reports whether the bench directory itself is unusable.
func isLoadFailure(errs []ValidationError) bool {
	if len(errs) != 1 {
		return false
	}
	switch errs[0].Code {
	case bench.ErrCodeNotFound, bench.ErrCodeNoFiles, bench.ErrCodeScanError:
		return true
	}
	return false
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, entities []EntitySummary) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Entities: entities})
	}

	fmt.Fprintf(formatter.Writer, "✓ Bench valid (%d entities)\n", len(entities))
	for _, e := range entities {
		fmt.Fprintf(formatter.Writer, "  %-16s %-12s %s\n", e.Name, e.Design, e.Model)
	}
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
