package auth

// Known OAuth scopes used by the analysis service.
const (
	ScopeAnalysisRun  = "analysis:run"
	ScopeAnalysisRead = "analysis:read"
)
