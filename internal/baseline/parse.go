package baseline

import (
	"regexp"
	"strconv"

	"github.com/hydra-cli/hydra/internal/core"
)

// Recognized test-summary line shapes, tried in order. Each must capture
// passed and failed (or total) counts; the first match wins.
var testSummaryPatterns = []*regexp.Regexp{
	// go test -v style: "--- FAIL:" / "--- PASS:" counted by line scan below.
	// jest/vitest: "Tests:       2 failed, 8 passed, 10 total"
	regexp.MustCompile(`Tests:\s+(?:(\d+) failed, )?(?:(\d+) passed, )?(\d+) total`),
	// pytest: "5 passed, 1 failed in 0.42s"
	regexp.MustCompile(`(\d+) passed(?:, (\d+) failed)?`),
	// go test summary counted via PASS/FAIL line tally (handled separately).
}

var (
	goTestPassLine = regexp.MustCompile(`(?m)^--- PASS:`)
	goTestFailLine = regexp.MustCompile(`(?m)^--- FAIL:`)
)

// parseTestCounts extracts pass/fail/total counts from a test command's
// captured output, falling back to the exit code when no recognized
// summary line is present.
func parseTestCounts(outcome core.CommandOutcome) core.TestCounts {
	combined := outcome.Stdout + "\n" + outcome.Stderr

	if m := testSummaryPatterns[0].FindStringSubmatch(combined); m != nil {
		failed := atoiOr(m[1], 0)
		passed := atoiOr(m[2], 0)
		total := atoiOr(m[3], passed+failed)
		if passed == 0 && total > failed {
			passed = total - failed
		}
		return core.TestCounts{Total: total, Passed: passed, Failed: failed}
	}

	if m := testSummaryPatterns[1].FindStringSubmatch(combined); m != nil {
		passed := atoiOr(m[1], 0)
		failed := atoiOr(m[2], 0)
		return core.TestCounts{Total: passed + failed, Passed: passed, Failed: failed}
	}

	if passCount, failCount := len(goTestPassLine.FindAllString(combined, -1)), len(goTestFailLine.FindAllString(combined, -1)); passCount+failCount > 0 {
		return core.TestCounts{Total: passCount + failCount, Passed: passCount, Failed: failCount}
	}

	// Fallback: exit code zero means the whole suite passed as one unit.
	if outcome.ExitCode == 0 {
		return core.TestCounts{Total: 1, Passed: 1, Failed: 0}
	}
	return core.TestCounts{Total: 1, Passed: 0, Failed: 1}
}

var (
	lintSummaryPattern = regexp.MustCompile(`(\d+) issues?`)
	lintWarningLine    = regexp.MustCompile(`(?mi)\bwarning\b`)
	lintErrorLine      = regexp.MustCompile(`(?mi)\berror\b`)
)

// parseLintCounts extracts warning/error counts from a lint command's
// captured output, falling back to a line-tally heuristic.
func parseLintCounts(outcome core.CommandOutcome) core.LintCounts {
	combined := outcome.Stdout + "\n" + outcome.Stderr

	if m := lintSummaryPattern.FindStringSubmatch(combined); m != nil {
		total := atoiOr(m[1], 0)
		return core.LintCounts{Warnings: total}
	}

	warnings := len(lintWarningLine.FindAllString(combined, -1))
	errors := len(lintErrorLine.FindAllString(combined, -1))
	return core.LintCounts{Warnings: warnings, Errors: errors}
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
