package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/visibilityscore/internal/application/services"
	"github.com/zatekoja/visibilityscore/internal/bootstrap"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

type inputFlags struct {
	inputFile  string
	visibility string
	auditFile  string
	openClaims int
	freshness  float64
}

func main() {
	var in inputFlags

	flag.StringVar(&in.inputFile, "input", "", "JSON file with the full score input, or - for stdin")
	flag.StringVar(&in.visibility, "visibility", "", "Share-of-voice fraction in [0,1]; empty when not measured")
	flag.StringVar(&in.auditFile, "audit-file", "", "Page audit result JSON, as written by the audit command")
	flag.IntVar(&in.openClaims, "open-claims", 0, "Number of open hallucination claims")
	flag.Float64Var(&in.freshness, "freshness", 0, "Fraction of scheduled audits that ran in the window")
	flag.Parse()

	if err := run(context.Background(), in); err != nil {
		log.Error().Err(err).Msg("health score failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, in inputFlags) error {
	rt, err := bootstrap.Init(ctx, "visibilityscore-healthscore")
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := buildInput(in, os.Stdin)
	if err != nil {
		return err
	}

	result, err := services.NewHealthScoreService().ComputeHealthScore(input)
	if err != nil {
		return err
	}
	log.Info().Int("score", result.Score).Str("grade", result.Grade).Msg("health score computed")

	return bootstrap.WriteJSON(os.Stdout, result)
}

func buildInput(in inputFlags, stdin io.Reader) (entities.HealthScoreInput, error) {
	var input entities.HealthScoreInput

	if in.inputFile != "" {
		data, err := readSource(in.inputFile, stdin)
		if err != nil {
			return input, err
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return input, fmt.Errorf("failed to parse input: %w", err)
		}
		return input, nil
	}

	if v := strings.TrimSpace(in.visibility); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return input, fmt.Errorf("invalid -visibility %q: %w", v, err)
		}
		input.VisibilityScore = &parsed
	}
	if in.auditFile != "" {
		data, err := readSource(in.auditFile, stdin)
		if err != nil {
			return input, err
		}
		var audit entities.PageAuditResult
		if err := json.Unmarshal(data, &audit); err != nil {
			return input, fmt.Errorf("failed to parse audit file: %w", err)
		}
		input.PageAudit = &audit
	}
	input.OpenClaimCount = in.openClaims
	input.AuditFreshnessRatio = in.freshness
	return input, nil
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
