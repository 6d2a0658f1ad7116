package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInput_FromFlags(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.json")
	require.NoError(t, os.WriteFile(auditPath, []byte(`{"overall_score": 72, "recommendations": []}`), 0o600))

	input, err := buildInput(inputFlags{visibility: "0.25", auditFile: auditPath, openClaims: 3, freshness: 0.5}, nil)

	require.NoError(t, err)
	require.NotNil(t, input.VisibilityScore)
	assert.InDelta(t, 0.25, *input.VisibilityScore, 1e-9)
	require.NotNil(t, input.PageAudit)
	assert.Equal(t, 72, input.PageAudit.OverallScore)
	assert.Equal(t, 3, input.OpenClaimCount)
	assert.InDelta(t, 0.5, input.AuditFreshnessRatio, 1e-9)
}

func TestBuildInput_NoVisibility(t *testing.T) {
	input, err := buildInput(inputFlags{freshness: 1}, nil)

	require.NoError(t, err)
	assert.Nil(t, input.VisibilityScore)
	assert.Nil(t, input.PageAudit)
}

func TestBuildInput_FromStdin(t *testing.T) {
	stdin := strings.NewReader(`{"visibility_score": 1, "open_claim_count": 0, "audit_freshness_ratio": 1, "page_audit": {"overall_score": 100}}`)

	input, err := buildInput(inputFlags{inputFile: "-"}, stdin)

	require.NoError(t, err)
	require.NotNil(t, input.VisibilityScore)
	assert.Equal(t, 1.0, *input.VisibilityScore)
	assert.Equal(t, 100, input.PageAudit.OverallScore)
}

func TestBuildInput_Errors(t *testing.T) {
	_, err := buildInput(inputFlags{visibility: "high"}, nil)
	assert.Error(t, err)

	_, err = buildInput(inputFlags{inputFile: "-"}, strings.NewReader("{"))
	assert.Error(t, err)

	_, err = buildInput(inputFlags{auditFile: filepath.Join(t.TempDir(), "missing.json")}, nil)
	assert.Error(t, err)
}
