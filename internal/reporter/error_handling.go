package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"ledgermerge/internal/reconciler"
	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with error handling and fallbacks
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the output format and currency settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely writes a merge summary or a report. The output is
// buffered so a failing format never leaves partial output behind.
func (srg *SafeReportGenerator) GenerateReportSafely(result interface{}, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.validateInputs(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	var buf bytes.Buffer
	if err := srg.generateWithFallback(result, &buf); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}

	if _, err := buf.WriteTo(writer); err != nil {
		return errors.InternalError(errors.CodeWriteFailed, "report_output", err).
			WithContext("output", getWriterDescription(writer))
	}

	srg.logger.Debug("Report generation completed successfully")
	return nil
}

// WriteFile writes result to filePath
func (srg *SafeReportGenerator) WriteFile(filePath string, result interface{}) error {
	var buf bytes.Buffer
	if err := srg.GenerateReportSafely(result, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return errors.FileError(errors.CodeWriteFailed, filePath, err)
	}
	srg.logger.WithField("file_path", filePath).Info("Report written")
	return nil
}

// validateInputs validates the inputs for report generation
func (srg *SafeReportGenerator) validateInputs(result interface{}, writer io.Writer) error {
	if result == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"result",
			nil,
			nil,
		).WithSuggestion("Provide a merge summary or a report")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeMissingField,
			"writer",
			nil,
			nil,
		).WithSuggestion("Provide a valid output writer")
	}

	return nil
}

func (srg *SafeReportGenerator) generate(generator *ReportGenerator, result interface{}, writer io.Writer) error {
	switch r := result.(type) {
	case *reconciler.MergeSummary:
		return generator.WriteMergeSummary(r, writer)
	case *reconciler.Report:
		return generator.WriteReport(r, writer)
	default:
		return errors.ValidationError(
			errors.CodeInvalidData,
			"result_type",
			fmt.Sprintf("%T", result),
			nil,
		).WithSuggestion("Provide a MergeSummary or a Report")
	}
}

// generateWithFallback attempts the configured output, then raw markdown
func (srg *SafeReportGenerator) generateWithFallback(result interface{}, buf *bytes.Buffer) error {
	err := srg.generate(srg.ReportGenerator, result, buf)
	if err == nil {
		return nil
	}
	if errors.HasCode(err, errors.CodeInvalidData) {
		return err
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")
	buf.Reset()

	if !srg.shouldAttemptFallback() {
		return srg.wrapGenerationError(err)
	}

	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatMarkdown
	fallbackConfig.Render = false
	fallback := &ReportGenerator{config: &fallbackConfig}

	srg.logger.WithField("fallback_format", FormatMarkdown).Info("Attempting raw markdown fallback")
	fmt.Fprintf(buf, "> Report generated as raw markdown: %v\n\n", err)

	if fallbackErr := srg.generate(fallback, result, buf); fallbackErr != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", err, fallbackErr),
		)
	}

	srg.logger.Info("Report generated successfully using raw markdown fallback")
	return nil
}

// shouldAttemptFallback is false when raw markdown was already requested
func (srg *SafeReportGenerator) shouldAttemptFallback() bool {
	return srg.config.Format != FormatMarkdown || srg.config.Render
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if ledgerErr, ok := errors.AsLedgerError(err); ok {
		return ledgerErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
