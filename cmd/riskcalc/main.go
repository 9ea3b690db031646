// riskcalc evaluates one case against the DVO fracture-risk tables and
// prints the result as JSON. The request is read from a file or stdin:
//
//	riskcalc -input case.json
//	echo '{"sex":"female","age":72,"t_score":-3.0}' | riskcalc
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
	"github.com/dvo-fracture-risk-server/internal/service"
)

func main() {
	inputPath := flag.String("input", "", "path to a JSON evaluation request (default: stdin)")
	datasetDir := flag.String("datasets", "", "directory overriding the embedded reference datasets")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := run(logger, *inputPath, *datasetDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func run(logger *logrus.Logger, inputPath, datasetDir string) error {
	req, err := readRequest(inputPath)
	if err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("invalid input: %v", err)}
	}
	if err := req.Validate(); err != nil {
		return &exitError{code: 2, msg: fmt.Sprintf("invalid input: %v", err)}
	}

	bundle, err := dataset.Load(datasetDir, logger)
	if err != nil {
		return fmt.Errorf("failed to load reference datasets: %w", err)
	}
	catalog, err := dataset.Compile(bundle)
	if err != nil {
		return fmt.Errorf("failed to compile reference datasets: %w", err)
	}

	evaluator, err := service.NewEvaluator(logger, catalog, 1)
	if err != nil {
		return err
	}

	result, err := evaluator.Evaluate(context.Background(), req)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func readRequest(inputPath string) (*domain.EvaluationRequest, error) {
	input := os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		input = f
	}

	req := &domain.EvaluationRequest{}
	decoder := json.NewDecoder(input)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(req); err != nil {
		return nil, err
	}
	return req, nil
}
