// Package cmdutil provides shared flags for layersync commands. Flags are
// named after their config keys (dashes for underscores) so the config
// loader binds them over the environment and config file.
package cmdutil

import (
	"github.com/spf13/cobra"
)

// AddInputFlags adds the flags that control how batches are read and
// merged.
func AddInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("key-column", "k", "", "key column used to match records across batches")
	f.String("schema-file", "", "YAML schema file; the schema is inferred when omitted")
	f.StringP("delimiter", "d", "", "field delimiter: comma, tab, semicolon, pipe or a single character")
	f.String("strategy", "", "conflict strategy: last-write-wins or first-write-wins")
	f.String("ordering", "", "output row order: first-seen or key")
	f.String("on-malformed", "", "records without a key: reject the batch or skip the record")
}

// AddPortalFlags adds the flags that locate and authenticate against the
// portal.
func AddPortalFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("portal-url", "", "portal URL (default https://www.arcgis.com)")
	f.StringP("username", "u", "", "portal username")
	f.String("referer", "", "referer sent with token requests")
	f.StringP("layer-id", "l", "", "item ID of the hosted feature layer")
	f.Bool("token-header", false, "send the token in the X-Esri-Authorization header instead of the URL")
	f.Duration("poll-interval", 0, "interval between publish status checks")
	f.Duration("overwrite-timeout", 0, "maximum time to wait for the overwrite job")
}

// AddOutputFlags adds the flags that place the merged output.
func AddOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("output-dir", "", "directory for the merged file")
	f.String("output-name", "", "output file name; defaults to the layer's published file name")
	f.String("archive-uri", "", "directory or bucket prefix that receives a timestamped copy")
}

// AddRunFlags adds the flags for run bookkeeping.
func AddRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("history-path", "", "SQLite run history file")
	f.String("metrics-textfile", "", "write metrics for the node-exporter textfile collector")
	f.String("pushgateway-url", "", "push metrics to this Pushgateway")
}
