package http

// Route names, used for metrics and for constructing URLs.
const (
	Ping        = "Ping"
	Version     = "Version"
	SubmitEvent = "SubmitEvent"
	JobStatus   = "JobStatus"
	GitHubHook  = "GitHubHook"
)
