package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/cmd/layersync/cmd/login"
	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/pkg/errors"
)

func fakePortal(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sharing/rest/generateToken":
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("password") != "secret" {
				_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid username or password."}}`))
				return
			}
			_, _ = w.Write([]byte(`{"token":"tok-1","expires":` +
				jsonInt(time.Now().Add(time.Hour).UnixMilli()) + `}`))
		case "/sharing/rest/community/self":
			_, _ = w.Write([]byte(`{"username":"alice","fullName":"Alice Admin","role":"org_admin"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestLoginPromptsForPassword(t *testing.T) {
	srv := fakePortal(t)
	app := &appcontext.Mock{
		SettingsValue: &config.Config{PortalURL: srv.URL, Username: "alice"},
		Format:        "json",
	}

	cmd := login.NewCommand(app)
	var out, prompt bytes.Buffer
	cmd.SetIn(strings.NewReader("secret\n"))
	cmd.SetOut(&out)
	cmd.SetErr(&prompt)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var status login.Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.Equal(t, "alice", status.Username)
	assert.Equal(t, "Alice Admin", status.FullName)
	assert.Equal(t, "token", status.Method)
	assert.NotEmpty(t, status.Expires)
}

func TestLoginBadPassword(t *testing.T) {
	srv := fakePortal(t)
	app := &appcontext.Mock{SettingsValue: &config.Config{PortalURL: srv.URL, Username: "alice", Password: "wrong"}}

	cmd := login.NewCommand(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
}

func TestLoginEmptyPassword(t *testing.T) {
	app := &appcontext.Mock{SettingsValue: &config.Config{PortalURL: "https://www.arcgis.com", Username: "alice"}}
	cmd := login.NewCommand(app)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	err := cmd.ExecuteContext(context.Background())
	assert.True(t, errors.IsValidationError(err))
}
