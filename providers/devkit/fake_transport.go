package devkit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

// AdminRoute is a canned admin API answer for requests whose method matches
// and whose URL path ends with PathSuffix.
type AdminRoute struct {
	Method     string
	PathSuffix string
	Response   core.TransportResponse
	Err        error
}

// AdminAPIFake is a core.TransportAdapter serving AdminRoutes. Unmatched
// requests get a 404 with the platform's error body.
type AdminAPIFake struct {
	mu       sync.Mutex
	routes   []AdminRoute
	requests []core.TransportRequest
}

func NewAdminAPIFake(routes ...AdminRoute) *AdminAPIFake {
	return &AdminAPIFake{routes: append([]AdminRoute(nil), routes...)}
}

// JSONRoute answers method+suffix with status and a JSON body.
func JSONRoute(method string, suffix string, status int, body string) AdminRoute {
	return AdminRoute{
		Method:     method,
		PathSuffix: suffix,
		Response: core.TransportResponse{
			StatusCode: status,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       []byte(body),
		},
	}
}

func (*AdminAPIFake) Kind() string { return "rest" }

func (f *AdminAPIFake) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if f == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: admin api fake is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, cloneTransportRequest(req))

	path := req.URL
	if parsed, err := url.Parse(req.URL); err == nil {
		path = parsed.Path
	}
	for _, route := range f.routes {
		if !strings.EqualFold(route.Method, req.Method) || !strings.HasSuffix(path, route.PathSuffix) {
			continue
		}
		return cloneTransportResponse(route.Response), route.Err
	}
	return core.TransportResponse{
		StatusCode: http.StatusNotFound,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(`{"errors":"Not Found"}`),
	}, nil
}

func (f *AdminAPIFake) Requests() []core.TransportRequest {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.TransportRequest, 0, len(f.requests))
	for _, item := range f.requests {
		out = append(out, cloneTransportRequest(item))
	}
	return out
}

// LastRequest returns the most recent request, or false when none was made.
func (f *AdminAPIFake) LastRequest() (core.TransportRequest, bool) {
	requests := f.Requests()
	if len(requests) == 0 {
		return core.TransportRequest{}, false
	}
	return requests[len(requests)-1], true
}

func cloneTransportRequest(in core.TransportRequest) core.TransportRequest {
	out := in
	out.Body = append([]byte(nil), in.Body...)
	out.Headers = copyTags(in.Headers)
	out.Query = copyTags(in.Query)
	out.Metadata = copyFields(in.Metadata)
	return out
}

func cloneTransportResponse(in core.TransportResponse) core.TransportResponse {
	out := in
	out.Body = append([]byte(nil), in.Body...)
	out.Headers = copyTags(in.Headers)
	out.Metadata = copyFields(in.Metadata)
	return out
}

var _ core.TransportAdapter = (*AdminAPIFake)(nil)
