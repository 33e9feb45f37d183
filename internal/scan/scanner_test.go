package scan

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeeteg007/tf-audit/internal/rules"
	"github.com/djeeteg007/tf-audit/internal/source"
	"github.com/djeeteg007/tf-audit/internal/tfparse"
)

// unencryptedBucket trips AWS-S3-001 only: versioning and tags are set so no
// other built-in rule fires.
const unencryptedBucket = `
resource "aws_s3_bucket" "logs" {
  bucket = "corp-logs"

  tags = { Owner = "platform" }

  versioning {
    enabled = true
  }
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestScanSingleFinding(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.tf": unencryptedBucket})

	result, err := Run(context.Background(), rules.Builtin(), Options{Root: dir})
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)

	f := result.Findings[0]
	assert.Equal(t, "AWS-S3-001", f.RuleID)
	assert.Equal(t, rules.SeverityHigh, f.Severity)
	assert.Equal(t, "aws_s3_bucket.logs", f.ResourceAddress)
	assert.Equal(t, "main.tf", f.File)
	assert.Equal(t, 2, f.Line)
	assert.NotEmpty(t, f.Remediation)
	assert.False(t, f.Waived)
	assert.False(t, result.Truncated)
}

func TestScanMissingRootIsFatal(t *testing.T) {
	_, err := Run(context.Background(), rules.Builtin(), Options{Root: "/does/not/exist"})
	require.Error(t, err)

	var inputErr *source.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestScanBrokenFileDoesNotAbort(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"broken.tf": `resource "aws_s3_bucket" {{{`,
		"main.tf":   unencryptedBucket,
	})

	result, err := Run(context.Background(), rules.Builtin(), Options{Root: dir})
	require.NoError(t, err)

	var ids []string
	for _, f := range result.Findings {
		ids = append(ids, f.RuleID)
	}
	// broken.tf sorts first, so its synthetic finding leads.
	require.Equal(t, []string{RuleIDParseError, "AWS-S3-001"}, ids)

	parseFinding := result.Findings[0]
	assert.Equal(t, rules.SeverityMedium, parseFinding.Severity)
	assert.Equal(t, "broken.tf", parseFinding.File)
}

func TestScanRuleFailureIsIsolated(t *testing.T) {
	registry := rules.NewRegistry()
	registry.MustRegister(rules.Rule{
		ID:        "T-BEFORE",
		AppliesTo: []string{"aws_s3_bucket"},
		Severity:  rules.SeverityLow,
		Check: func(res tfparse.ResourceBlock, _ *rules.ScanContext) ([]rules.FindingDraft, error) {
			return []rules.FindingDraft{{Message: "before"}}, nil
		},
	})
	registry.MustRegister(rules.Rule{
		ID:        "T-PANICS",
		AppliesTo: []string{"aws_s3_bucket"},
		Severity:  rules.SeverityLow,
		Check: func(res tfparse.ResourceBlock, _ *rules.ScanContext) ([]rules.FindingDraft, error) {
			panic("boom")
		},
	})
	registry.MustRegister(rules.Rule{
		ID:        "T-ERRORS",
		AppliesTo: []string{"aws_s3_bucket"},
		Severity:  rules.SeverityLow,
		Check: func(res tfparse.ResourceBlock, _ *rules.ScanContext) ([]rules.FindingDraft, error) {
			return nil, errors.New("bad lookup")
		},
	})
	registry.MustRegister(rules.Rule{
		ID:        "T-AFTER",
		AppliesTo: []string{"aws_s3_bucket"},
		Severity:  rules.SeverityLow,
		Check: func(res tfparse.ResourceBlock, _ *rules.ScanContext) ([]rules.FindingDraft, error) {
			return []rules.FindingDraft{{Message: "after"}}, nil
		},
	})

	dir := writeTree(t, map[string]string{"main.tf": unencryptedBucket})
	result, err := Run(context.Background(), registry, Options{Root: dir})
	require.NoError(t, err)

	var ids []string
	for _, f := range result.Findings {
		ids = append(ids, f.RuleID)
	}
	// Rules before and after the misbehaving ones still report, in
	// registration order, with one synthetic finding per failure.
	assert.Equal(t, []string{
		"T-BEFORE",
		RuleErrorPrefix + "T-PANICS",
		RuleErrorPrefix + "T-ERRORS",
		"T-AFTER",
	}, ids)

	for _, f := range result.Findings[1:3] {
		assert.Equal(t, rules.SeverityMedium, f.Severity)
		assert.Equal(t, "aws_s3_bucket.logs", f.ResourceAddress)
	}
}

func TestScanDeterministicOrdering(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"b/db.tf": `
resource "aws_db_instance" "main" {
  publicly_accessible = true
}
`,
		"a/net.tf": `
resource "aws_security_group" "edge" {
  ingress {
    from_port   = 22
    to_port     = 22
    protocol    = "tcp"
    cidr_blocks = ["0.0.0.0/0"]
  }
}
`,
		"main.tf": unencryptedBucket,
	})

	first, err := Run(context.Background(), rules.Builtin(), Options{Root: dir})
	require.NoError(t, err)
	second, err := Run(context.Background(), rules.Builtin(), Options{Root: dir})
	require.NoError(t, err)

	a, _ := json.Marshal(first.Findings)
	b, _ := json.Marshal(second.Findings)
	assert.Equal(t, string(a), string(b))

	// Findings group by lexicographic file order.
	var files []string
	for _, f := range first.Findings {
		files = append(files, f.File)
	}
	assert.IsNonDecreasing(t, files)
}

func TestScanCancellationReturnsPartialResult(t *testing.T) {
	dir := writeTree(t, map[string]string{"main.tf": unencryptedBucket})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, rules.Builtin(), Options{Root: dir})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Empty(t, result.Findings)
}

func TestScanArchiveInput(t *testing.T) {
	archive := zipOf(t, map[string]string{"main.tf": unencryptedBucket})

	result, err := Run(context.Background(), rules.Builtin(), Options{Archive: archive})
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "AWS-S3-001", result.Findings[0].RuleID)
}

func TestScanCorruptArchiveIsFatal(t *testing.T) {
	_, err := Run(context.Background(), rules.Builtin(), Options{Archive: []byte("not a zip")})
	require.Error(t, err)

	var inputErr *source.InputError
	assert.ErrorAs(t, err, &inputErr)
}
