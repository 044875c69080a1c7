package scoring

// Weights maps a dimension name ("build", "tests", "lint", "diff_scope",
// "speed") to its share of the composite. Entries for dimensions that end
// up missing are dropped and the rest renormalized at composite time.
type Weights map[string]float64

// Gates are the mergeability requirements independent of composite score.
type Gates struct {
	RequireBuildPass  bool
	MaxTestRegression int
}

// DiffScopeThresholds bound how much churn a dimension-scope score
// tolerates before penalizing, and what the ceiling is if a protected
// path was touched at all.
type DiffScopeThresholds struct {
	MaxLinesChanged int
	MaxFilesTouched int
	ProtectedPaths  []string
	ProtectedCap    float64
}

// TestParams tunes the tests dimension's regression penalty, new-test
// bonus, and anti-gaming test-deletion cap.
type TestParams struct {
	RegressionPenaltyPerTest float64
	NewTestBonusPerTest      float64
	AllowedTestDrop          float64
	TestDropCapScore         float64
}

// LintParams tunes the lint dimension's per-new-warning penalty.
type LintParams struct {
	PenaltyPerWarning float64
}

// Config is the fully-resolved scoring profile for one race.
type Config struct {
	Weights    Weights
	Gates      Gates
	DiffScope  DiffScopeThresholds
	TestParams TestParams
	LintParams LintParams
}

// DefaultConfig mirrors the "balanced" profile: every dimension
// contributes, with tests weighted the heaviest since it is the strongest
// correctness signal available without human review.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			"build":      0.25,
			"tests":      0.35,
			"lint":       0.10,
			"diff_scope": 0.15,
			"speed":      0.15,
		},
		Gates: Gates{
			RequireBuildPass:  true,
			MaxTestRegression: 0,
		},
		DiffScope: DiffScopeThresholds{
			MaxLinesChanged: 800,
			MaxFilesTouched: 40,
			ProtectedCap:    40,
		},
		TestParams: TestParams{
			RegressionPenaltyPerTest: 0.05,
			NewTestBonusPerTest:      1.0,
			AllowedTestDrop:          0.1,
			TestDropCapScore:         50,
		},
		LintParams: LintParams{
			PenaltyPerWarning: 2.0,
		},
	}
}
