package sidecar

// routeSpec describes how a named tool maps onto an HTTP request.
// pathParams are substituted into path in `{name}` placeholders from
// args; queryParams are lifted from args onto the query string.
// Remaining args become the JSON body for POST requests.
type routeSpec struct {
	Method      string
	Path        string
	PathParams  []string
	QueryParams []string
}

// routeTable is the closed, versioned set of tools the HTTP transport
// knows how to call. Adding a tool is a one-line addition here.
var routeTable = map[string]routeSpec{
	"health":   {Method: "GET", Path: "/v1/health"},
	"status":   {Method: "GET", Path: "/v1/status"},
	"domains":  {Method: "GET", Path: "/v1/domains"},
	"stats":    {Method: "GET", Path: "/v1/stats"},
	"query":    {Method: "POST", Path: "/v1/query"},
	"feedback": {Method: "POST", Path: "/v1/feedback"},

	"ingest":       {Method: "POST", Path: "/v1/ingest"},
	"ingest_note":  {Method: "POST", Path: "/v1/ingest/note"},
	"ingest_file":  {Method: "POST", Path: "/v1/ingest/file"},
	"ingest_url":   {Method: "POST", Path: "/v1/ingest/url"},
	"ingest_batch": {Method: "POST", Path: "/v1/ingest/batch"},

	"explore": {Method: "POST", Path: "/v1/explore"},
	"rules":   {Method: "GET", Path: "/v1/rules"},

	"learning_select":        {Method: "POST", Path: "/v1/learning/select"},
	"learning_observe":       {Method: "POST", Path: "/v1/learning/observe"},
	"learning_posteriors":    {Method: "GET", Path: "/v1/learning/{learner}/posteriors", PathParams: []string{"learner"}},
	"learning_metrics":       {Method: "GET", Path: "/v1/learning/{learner}/metrics", PathParams: []string{"learner"}, QueryParams: []string{"window"}},
	"learning_reset":         {Method: "POST", Path: "/v1/learning/reset"},
	"learning_session_start": {Method: "POST", Path: "/v1/learning/sessions/start"},
	"learning_session_end":   {Method: "POST", Path: "/v1/learning/sessions/end"},
}
