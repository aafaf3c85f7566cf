package metrics

/*
Labels and so on for metrics used by the deployer.
*/

const (
	LabelMethod    = "method"
	LabelRoute     = "route"
	LabelSuccess   = "success"
	LabelEventType = "event_type"

	Namespace = "ditc_deployer"
)
