package daemon

import (
	"io/ioutil"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/weaveworks/common/middleware"

	"github.com/kooba/ditc-deployer/pkg/api"
	"github.com/kooba/ditc-deployer/pkg/event"
	"github.com/kooba/ditc-deployer/pkg/github"
	transport "github.com/kooba/ditc-deployer/pkg/http"
	"github.com/kooba/ditc-deployer/pkg/job"
	ditcmetrics "github.com/kooba/ditc-deployer/pkg/metrics"
)

var (
	requestDuration = stdprometheus.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: ditcmetrics.Namespace,
		Name:      "request_duration_seconds",
		Help:      "Time (in seconds) spent serving HTTP requests.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{ditcmetrics.LabelMethod, ditcmetrics.LabelRoute, "status_code", "ws"})
)

func init() {
	stdprometheus.MustRegister(requestDuration)
}

// An API server for the daemon
func NewRouter() *mux.Router {
	r := transport.NewAPIRouter()

	// Every request that doesn't match a route is a client calling an
	// API this server doesn't have.
	r.NewRoute().Name("NotFound").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, r, http.StatusNotFound, transport.MakeAPINotFound(r.URL.Path))
	})

	return r
}

// NewHandler attaches handlers to the router. Webhook deliveries are
// checked against hookSecret, if it is not empty.
func NewHandler(s api.Server, r *mux.Router, hookSecret []byte, logger log.Logger) http.Handler {
	handle := HTTPServer{server: s, hookSecret: hookSecret, logger: logger}

	r.Get(transport.Ping).HandlerFunc(handle.Ping)
	r.Get(transport.Version).HandlerFunc(handle.Version)
	r.Get(transport.SubmitEvent).HandlerFunc(handle.SubmitEvent)
	r.Get(transport.JobStatus).HandlerFunc(handle.JobStatus)
	r.Get(transport.GitHubHook).HandlerFunc(handle.GitHubHook)

	return middleware.Instrument{
		RouteMatcher: r,
		Duration:     requestDuration,
	}.Wrap(r)
}

type HTTPServer struct {
	server     api.Server
	hookSecret []byte
	logger     log.Logger
}

func (s HTTPServer) Ping(w http.ResponseWriter, r *http.Request) {
	if err := s.server.Ping(r.Context()); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s HTTPServer) Version(w http.ResponseWriter, r *http.Request) {
	version, err := s.server.Version(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, version)
}

// SubmitEvent takes the event type from the path, and the payload
// verbatim from the body.
func (s HTTPServer) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	typ, err := event.ParseType(mux.Vars(r)["type"])
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	defer r.Body.Close()
	payload, err := ioutil.ReadAll(r.Body)
	if err != nil {
		transport.WriteError(w, r, http.StatusBadRequest, errors.Wrap(err, "reading event payload"))
		return
	}
	if len(payload) == 0 {
		transport.ErrorResponse(w, r, transport.ErrorMissingPayload)
		return
	}

	s.submit(w, r, event.Event{Type: typ, Payload: string(payload)})
}

func (s HTTPServer) submit(w http.ResponseWriter, r *http.Request, ev event.Event) {
	id, err := s.server.SubmitEvent(r.Context(), ev)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	s.logger.Log("info", "event queued", "event", ev.Type, "jobID", id)
	transport.AcceptedResponse(w, r, id)
}

func (s HTTPServer) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := job.ID(mux.Vars(r)["id"])
	status, err := s.server.JobStatus(r.Context(), id)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, status)
}

// GitHubHook queues create deliveries as events. Other deliveries,
// including the ping sent when a webhook is set up, are acknowledged
// and dropped.
func (s HTTPServer) GitHubHook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	hook, err := github.ReadHook(r, s.hookSecret)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	ev, ok := hook.Event()
	if !ok {
		s.logger.Log("info", "ignoring webhook delivery", "hook", hook.Name, "delivery", hook.Delivery)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.submit(w, r, ev)
}
