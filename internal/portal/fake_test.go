package portal_test

import (
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakePortal serves the subset of the sharing REST API used by the client
// and counts calls per endpoint.
type fakePortal struct {
	t *testing.T

	mu       sync.Mutex
	calls    map[string]int
	uploaded map[string]string // file name -> content

	token        string
	tokenExpires time.Time
	layer        map[string]any
	source       map[string]any
	publishResp  any
	statuses     []string // returned in order, last one repeats
	failUpload   bool
}

func newFakePortal(t *testing.T) (*fakePortal, *httptest.Server) {
	f := &fakePortal{
		t:            t,
		calls:        map[string]int{},
		uploaded:     map[string]string{},
		token:        "tok-1",
		tokenExpires: time.Now().Add(time.Hour),
		layer: map[string]any{
			"id": "layer1", "owner": "gis_admin", "title": "Hawaii Cities",
			"type": "Feature Service", "name": "Hawaii_Cities",
		},
		source: map[string]any{
			"id": "csv1", "owner": "gis_admin", "title": "Hawaii Cities",
			"type": "CSV", "name": "Hawaii_Cities.csv",
		},
		publishResp: map[string]any{
			"services": []any{map[string]any{"type": "Feature Service", "serviceItemId": "layer1", "jobId": "job-9"}},
		},
		statuses: []string{"processing", "completed"},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePortal) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakePortal) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakePortal) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sharing/rest")

	f.mu.Lock()
	defer f.mu.Unlock()

	endpoint := endpointName(path)
	f.calls[endpoint]++

	if endpoint != "generateToken" && r.URL.Query().Get("token") != f.token &&
		r.Header.Get("X-Esri-Authorization") != "Bearer "+f.token {
		f.writeJSON(w, map[string]any{"error": map[string]any{"code": 498, "message": "Invalid token."}})
		return
	}

	switch endpoint {
	case "generateToken":
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "secret" {
			f.writeJSON(w, map[string]any{"error": map[string]any{
				"code": 400, "message": "Unable to generate token.", "details": []string{"Invalid username or password."},
			}})
			return
		}
		f.writeJSON(w, map[string]any{"token": f.token, "expires": f.tokenExpires.UnixMilli(), "ssl": true})
	case "self":
		f.writeJSON(w, map[string]any{"username": "alice", "fullName": "Alice A", "role": "org_admin"})
	case "item":
		if strings.HasSuffix(path, "/layer1") {
			f.writeJSON(w, f.layer)
			return
		}
		f.writeJSON(w, map[string]any{"error": map[string]any{"code": 400, "message": "Item does not exist or is inaccessible."}})
	case "relatedItems":
		assertEqual(f.t, "Service2Data", r.URL.Query().Get("relationshipType"))
		assertEqual(f.t, "forward", r.URL.Query().Get("direction"))
		f.writeJSON(w, map[string]any{"total": 1, "relatedItems": []any{f.source}})
	case "update":
		if f.failUpload {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		form, err := multipart.NewReader(r.Body, params["boundary"]).ReadForm(1 << 20)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, fh := range form.File["file"] {
			rc, _ := fh.Open()
			data, _ := io.ReadAll(rc)
			_ = rc.Close()
			f.uploaded[fh.Filename] = string(data)
		}
		f.writeJSON(w, map[string]any{"success": true, "id": "csv1"})
	case "publish":
		_ = r.ParseForm()
		assertEqual(f.t, "true", r.PostForm.Get("overwrite"))
		assertEqual(f.t, "csv1", r.PostForm.Get("itemID"))
		assertEqual(f.t, "csv", r.PostForm.Get("filetype"))
		f.writeJSON(w, f.publishResp)
	case "status":
		assertEqual(f.t, "job-9", r.URL.Query().Get("jobId"))
		i := f.calls["status"] - 1
		if i >= len(f.statuses) {
			i = len(f.statuses) - 1
		}
		st := f.statuses[i]
		msg := ""
		if st == "failed" {
			msg = "Column count does not match the published layer."
		}
		f.writeJSON(w, map[string]any{"status": st, "statusMessage": msg, "itemId": "layer1"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func endpointName(path string) string {
	switch {
	case path == "/generateToken":
		return "generateToken"
	case path == "/community/self":
		return "self"
	case strings.HasSuffix(path, "/relatedItems"):
		return "relatedItems"
	case strings.HasSuffix(path, "/update"):
		return "update"
	case strings.HasSuffix(path, "/publish"):
		return "publish"
	case strings.HasSuffix(path, "/status"):
		return "status"
	case strings.HasPrefix(path, "/content/items/"):
		return "item"
	}
	return path
}

func assertEqual(t *testing.T, want, got string) {
	t.Helper()
	if want != got {
		t.Errorf("expected %q, got %q", want, got)
	}
}
