package http

import (
	"net/http"
	"strings"

	"github.com/golang/gddo/httputil/header"
)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain"
)

// negotiate picks one of offers, most preferred first, for the
// request's Accept header. An offer gets the quality of the most
// specific media range covering it, so `text/*` and `*/*` count. The
// highest quality wins, and ties go to the earlier offer. Without an
// Accept header the first offer is used; "" means none is acceptable.
func negotiate(r *http.Request, offers ...string) string {
	specs := header.ParseAccept(r.Header, "Accept")
	if len(specs) == 0 {
		return offers[0]
	}
	best, bestQ := "", 0.0
	for _, offer := range offers {
		if q := quality(specs, offer); q > bestQ {
			best, bestQ = offer, q
		}
	}
	return best
}

// quality is the q value of the most specific range matching
// contentType, or 0 when none does.
func quality(specs []header.AcceptSpec, contentType string) float64 {
	wildcard := strings.SplitN(contentType, "/", 2)[0] + "/*"
	q, specificity := 0.0, -1
	for _, spec := range specs {
		var s int
		switch spec.Value {
		case contentType:
			s = 2
		case wildcard:
			s = 1
		case "*/*":
			s = 0
		default:
			continue
		}
		if s > specificity {
			q, specificity = spec.Q, s
		}
	}
	return q
}
