package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/testdata"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.smf")
	testdata.WriteFile(t, input, testdata.Payloads(30, "A", "B", "A", "C")...)
	out := filepath.Join(dir, "out.smf")
	dups := filepath.Join(dir, "dups.smf")

	code, stdout, stderr := run("split", input, out, dups)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "Warning:\n")
	require.Contains(t, stdout, "Finished, 4 records in, 3 records out, 1 duplicates.\n\nDuplicates by type:\n  30 :        1\n")
	require.Equal(t, 3, len(testdata.ReadFile(t, out)))
	require.Equal(t, 1, len(testdata.ReadFile(t, dups)))
}

func TestSplitCommandJSON(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.smf")
	testdata.WriteFile(t, input, testdata.Payloads(70, "A", "A", "A")...)

	code, stdout, _ := run("split", "--json", "--workers", "2", input)
	require.Equal(t, 0, code)
	doc := gjson.Parse(stdout)
	require.Equal(t, int64(3), doc.Get("records_in").Int())
	require.Equal(t, int64(0), doc.Get("records_out").Int())
	require.Equal(t, int64(2), doc.Get("duplicates").Int())
	require.Equal(t, int64(70), doc.Get("duplicates_by_type.0.type").Int())
}

func TestSplitCommandErrors(t *testing.T) {
	code, stdout, _ := run("split")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "Usage:")
	require.Contains(t, stdout, "dup-file")

	code, _, stderr := run("split", "a", "b", "c", "d")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Usage:")

	missing := filepath.Join(t.TempDir(), "missing.smf")
	code, _, stderr = run("split", missing)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Usage:")
	require.Contains(t, stderr, "Error: input "+missing)
}

func TestSplitCommandMalformed(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.smf")
	require.Nil(t, os.WriteFile(input, []byte{0, 9, 0, 0, 1}, 0600))
	out := filepath.Join(dir, "out.smf")

	code, _, stderr := run("split", input, out)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Error: input")
	_, err := os.Stat(out)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHelp(t *testing.T) {
	code, stdout, _ := run("split", "-h")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "dup-file")

	code, stdout, _ = run("--help")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "report-dups")
}

func TestReportDupsCommand(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "day1.smf")
	second := filepath.Join(dir, "day2.smf")
	var payloads []string
	for i := 0; i < 10; i++ {
		payloads = append(payloads, fmt.Sprintf("record %d", i))
	}
	testdata.WriteFile(t, first, testdata.Payloads(30, payloads...)...)
	testdata.WriteFile(t, second, testdata.Payloads(30, payloads...)...)

	code, stdout, stderr := run("report-dups", first, second)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "Finished, 20 records in, 10 duplicates.\n"+
		"\n"+
		"System : SYSA\n"+
		"\n"+
		"Minute                Records      Dup   Dup%\n"+
		"\n"+
		"2024-03-05T13:47           20       10    100\n", stdout)

	code, stdout, _ = run("report-dups", "--json", "--strength", "strong", "--threshold", "1.5", first, second)
	require.Equal(t, 0, code)
	doc := gjson.Parse(stdout)
	require.Equal(t, int64(2), doc.Get("inputs").Int())
	require.Equal(t, "SYSA", doc.Get("systems.0.system").String())
	require.Equal(t, int64(0), doc.Get("systems.0.windows.#").Int())
}

func TestReportDupsCommandErrors(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.smf")
	testdata.WriteFile(t, input, testdata.Payloads(30, "A")...)

	code, _, stderr := run("report-dups", "--strength", "medium", input)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown fingerprint strength")

	code, _, stderr = run("report-dups", "--threshold", "0", input)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "threshold")

	code, stdout, stderr := run("report-dups")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "Usage:")
	require.Empty(t, stderr)

	code, _, stderr = run("report-dups", "--granularity", "0s", input)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "granularity")
}

func TestReportDupsCancelled(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.smf")
	testdata.WriteFile(t, input, testdata.Payloads(30, "A", "A")...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := execute(ctx, []string{"report-dups", input}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "Interrupted")
	require.Empty(t, stdout.String())

	stdout.Reset()
	code = execute(ctx, []string{"report-dups", "--partial", input}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stdout.String(), "Finished, 0 records in, 0 duplicates.")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "conf.yaml")
	require.Nil(t, os.WriteFile(conf, []byte("index: [not, a, map]\n"), 0600))
	input := filepath.Join(dir, "in.smf")
	testdata.WriteFile(t, input, testdata.Payloads(30, "A")...)

	code, _, stderr := run("report-dups", "--config", conf, input)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "config file")

	require.Nil(t, os.WriteFile(conf, []byte("index:\n  strength: strong\nwindow:\n  threshold: 0.5\n"), 0600))
	code, _, stderr = run("report-dups", "--config", conf, input)
	require.Equal(t, 0, code, stderr)
}

func TestVersion(t *testing.T) {
	code, stdout, _ := run("version")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "azul-dedup ")
}
