package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run reads the input emails, processes them through the guard service and
// prints the results
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	service *core.GuardService,
	rewriter core.RewriteClient,
) error {
	defer logger.Sync()
	defer func() {
		if closer, ok := rewriter.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close rewrite client", zap.Error(err))
			}
		}
	}()

	content, err := readInput(flags, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if flags.Batch {
		emails := splitBatch(content)
		if len(emails) == 0 {
			return fmt.Errorf("no emails found in input")
		}
		logger.Info("Processing batch", zap.Int("count", len(emails)))

		results, err := service.BatchProcessEmails(ctx, emails)
		if err != nil {
			return fmt.Errorf("batch processing failed: %w", err)
		}
		if flags.JSONOut {
			return printJSON(results)
		}
		for i, result := range results {
			fmt.Printf("\n=== Email %d of %d ===\n", i+1, len(results))
			printResult(result)
		}
		return nil
	}

	startTime := time.Now()
	result, err := service.ProcessEmail(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to process email: %w", err)
	}

	if flags.JSONOut {
		return printJSON(result)
	}
	fmt.Printf("\n=== Results ===\n")
	printResult(result)
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readInput loads the email text from the input file or stdin
func readInput(flags *di.CLIFlags, logger *zap.Logger) (string, error) {
	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return "", fmt.Errorf("failed to open input file %s: %w", flags.InputFile, err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// splitBatch splits input into individual emails on blank-line boundaries
func splitBatch(content string) []string {
	parts := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	emails := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			emails = append(emails, part)
		}
	}
	return emails
}

func printResult(result *core.ProcessResult) {
	fmt.Printf("Spam score: %.4f\n", result.SpamScore)
	fmt.Printf("Is spam: %t\n", result.IsSpam)
	fmt.Printf("Recommendation: %s\n", result.Recommendation)

	if result.Outcome != nil {
		fmt.Printf("Termination reason: %s\n", result.Outcome.Reason)
	}
	fmt.Printf("Refinement attempts: %d\n", result.Refinement.Attempts)

	if result.Refinement.FinalScore != nil {
		fmt.Printf("Final score: %.4f\n", *result.Refinement.FinalScore)
	}
	if result.Refinement.Error != "" {
		fmt.Printf("Refinement error: %s\n", result.Refinement.Error)
	}
	if result.Refinement.RefinedEmail != "" && result.Refinement.RefinedEmail != result.OriginalEmail {
		fmt.Printf("\n--- Refined email ---\n%s\n", result.Refinement.RefinedEmail)
	}
}
