package output

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i-StarX/tc-transformer/pkg/transformer/models"
)

func sampleRecords() []models.Record {
	var a, b models.Record
	a.Set(models.ColReference, "TC-1")
	a.Set(models.ColAction, "click")
	a.Set(models.ColLocator, `[id="login-button"]`)
	b.Set(models.ColReference, "TC-2")
	b.Set(models.ColAction, "goto")
	b.Set(models.ColLocator, "Checkout")
	return []models.Record{a, b}
}

func TestToJSON(t *testing.T) {
	data, err := ToJSON(sampleRecords(), false)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"TC Reference":"TC-1","Action":"click","Element Locator ":"[id=\"login-button\"]"},`+
			`{"TC Reference":"TC-2","Action":"goto","Element Locator ":"Checkout"}]`,
		string(data))

	empty, err := ToJSON(nil, false)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	pretty, err := ToJSON(sampleRecords()[:1], true)
	require.NoError(t, err)
	assert.Contains(t, string(pretty), "\n  {\n    \"TC Reference\": \"TC-1\",")
}

func TestReportToJSON(t *testing.T) {
	report := &models.RunReport{RunID: "r1", Groups: []models.GroupReport{
		{Group: 0, FirstRow: 0, LoginRequired: true, Actions: 1, Parsed: 1, Applied: 1, MatchMode: models.MatchKeyed},
	}}

	data, err := ReportToJSON(report, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"run_id":"r1","groups":[{"group":0,"first_row":0,"login_required":true,"actions":1,"parsed":1,"applied":1,"match_mode":"keyed"}]}`, string(data))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, "", sampleRecords()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"TC Reference", "Action", "Element Locator "}, rows[0])
	assert.Equal(t, []string{"TC-1", "click", `[id="login-button"]`}, rows[1])
	assert.Equal(t, []string{"TC-2", "goto", "Checkout"}, rows[2])
}
