package output_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/internal/cmd/output"
)

type row struct {
	RunID   string `json:"run_id"`
	Records int    `json:"records_out"`
	secret  string
	Hidden  string `json:"-"`
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml", "csv", ""} {
		_, err := output.ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := output.ParseFormat("wide")
	assert.Error(t, err)
}

func TestTableFromStructSlice(t *testing.T) {
	var buf bytes.Buffer
	rows := []row{{RunID: "r1", Records: 51, secret: "x", Hidden: "h"}, {RunID: "r2", Records: 9}}
	require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, rows))

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "RUN ID")
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "51")
	assert.NotContains(t, strings.ToUpper(out), "HIDDEN")
	assert.NotContains(t, strings.ToUpper(out), "SECRET")
}

func TestTableFromTabular(t *testing.T) {
	var buf bytes.Buffer
	data := output.Data{Headers: []string{"Batch", "Records"}, Rows: [][]string{{"b1.csv", "3"}},
		ColumnAlignment: []output.Align{output.AlignLeft, output.AlignRight}}
	require.NoError(t, output.Write(&buf, "table", data))
	assert.Contains(t, buf.String(), "b1.csv")
}

func TestJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, "json", row{RunID: "r1", Records: 2}))
	assert.JSONEq(t, `{"run_id":"r1","records_out":2}`, buf.String())

	buf.Reset()
	require.NoError(t, output.Write(&buf, "yaml", map[string]int{"records": 2}))
	assert.Equal(t, "records: 2\n", buf.String())

	assert.Error(t, output.Write(&buf, "xml", nil))
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	data := output.Data{Headers: []string{"Batch", "Records"}, Rows: [][]string{{"a, b.csv", "3"}}}
	require.NoError(t, output.Write(&buf, "csv", data))
	assert.Equal(t, "Batch,Records\n\"a, b.csv\",3\n", buf.String())

	buf.Reset()
	require.NoError(t, output.Write(&buf, "csv", []row{{RunID: "r1", Records: 4}}))
	assert.Equal(t, "Run Id,Records Out\nr1,4\n", buf.String())

	assert.Error(t, output.Write(&buf, "csv", 42))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Records Out", output.Title("records out"))
}
