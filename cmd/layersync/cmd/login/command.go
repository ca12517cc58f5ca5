// Package login implements the login command.
package login

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/cmd/cmdutil"
	"github.com/agentstation/layersync/internal/cmd/output"
	"github.com/agentstation/layersync/pkg/errors"
)

// Status describes a verified session.
type Status struct {
	Portal   string `json:"portal"              yaml:"portal"`
	Method   string `json:"method"              yaml:"method"`
	Username string `json:"username"            yaml:"username"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Role     string `json:"role,omitempty"      yaml:"role,omitempty"`
	OrgID    string `json:"org_id,omitempty"    yaml:"org_id,omitempty"`
	Expires  string `json:"expires,omitempty"   yaml:"expires,omitempty"`
}

// NewCommand creates the login command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "login",
		GroupID: "management",
		Short:   "Verify portal credentials",
		Long: `Login authenticates against the portal and shows who the session acts as.

With a username and no password or API key configured, the password is
prompted for. Nothing is stored; set LAYERSYNC_PASSWORD or
LAYERSYNC_API_KEY (or use a .env file) for unattended runs.`,
		Example: `  layersync login -u gis_admin
  LAYERSYNC_API_KEY=... layersync login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.Settings()
			if settings.APIKey == "" && settings.Username != "" && settings.Password == "" {
				pw, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				settings.Password = pw
			}

			client, err := app.Portal()
			if err != nil {
				return err
			}
			user, err := client.Self(cmd.Context())
			if err != nil {
				return err
			}

			status := Status{
				Portal:   settings.PortalURL,
				Method:   settings.Credentials().Method(),
				Username: user.Username,
				FullName: user.FullName,
				Role:     user.Role,
				OrgID:    user.OrgID,
			}
			if exp := client.Session().Expires(); !exp.IsZero() {
				status.Expires = exp.Local().Format(time.RFC3339)
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), status)
		},
	}
	cmdutil.AddPortalFlags(cmd)
	return cmd
}

// promptPassword reads a password without echo from a terminal, or a
// single line from in otherwise.
func promptPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", errors.WrapIO("read", "terminal", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.WrapIO("read", "stdin", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.NewValidationError("password", "", "no password given")
	}
	return pw, nil
}
