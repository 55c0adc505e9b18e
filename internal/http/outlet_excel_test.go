package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// tenantSession walks the real issuance path: seed a principal, create a
// brand, and sign in with the one-time machine credential. The returned
// token carries the Owner role.
func tenantSession(t *testing.T, f *apiFixture) string {
	t.Helper()
	f.seedPrincipal(t, "founder@example.com", "str0ng pass")

	_, env := f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"identifier": "founder@example.com", "password": "str0ng pass",
	})
	principalToken := result(t, env)["token"].(string)

	resp, env := f.do(t, http.MethodPost, "/api/v1/brands", principalToken, map[string]string{
		"brand_name": "Sheet Brand",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	credential := result(t, env)["credential"].(map[string]any)

	resp, env = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"brand_name": "Sheet Brand",
		"identifier": credential["secret"].(string),
		"password":   credential["password"].(string),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return result(t, env)["token"].(string)
}

func buildOutletWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(outletSheetName)
	require.NoError(t, err)
	f.SetActiveSheet(index)

	for col, header := range outletExcelHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(outletSheetName, cell, header))
	}
	for i, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(outletSheetName, cell, v))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestOutletImportExportRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	tenantToken := tenantSession(t, f)

	// One outlet exists before the import so its code collides.
	resp, _ := f.do(t, http.MethodPost, "/api/v1/outlets", tenantToken, map[string]string{
		"outlet_code": "SB-01", "outlet_name": "Sheet Downtown",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	workbook := buildOutletWorkbook(t, [][]any{
		{"SB-01", "Duplicate Of Existing", "1 Main St"},
		{"SB-02", "Sheet Airport", "2 Runway Rd"},
		{"SB-03", ""}, // name missing
		{"", ""},      // blank row, ignored
		{"SB-04", "Sheet Harbour"},
	})

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/outlets/import", bytes.NewReader(workbook))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tenantToken)
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var envelope map[string]any
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&envelope))
	httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	report := result(t, envelope)
	require.Equal(t, float64(2), report["imported"], "SB-02 and SB-04")
	require.Equal(t, float64(2), report["skipped"], "duplicate code and missing name")
	require.Len(t, report["failures"].([]any), 2)

	// The partition now holds the pre-existing outlet plus the two imports.
	resp, env := f.do(t, http.MethodGet, "/api/v1/outlets", tenantToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, env["result"].([]any), 3)

	// Export reproduces the same layout the importer accepts.
	req, err = http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/outlets/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tenantToken)
	httpResp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	exported, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	wb, err := excelize.OpenReader(bytes.NewReader(exported))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(outletSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three outlets")
	require.Equal(t, outletExcelHeaders, rows[0])

	codes := map[string]bool{}
	for _, row := range rows[1:] {
		codes[row[0]] = true
	}
	require.True(t, codes["SB-01"] && codes["SB-02"] && codes["SB-04"])
}

func TestOutletImportRejectsGarbagePayload(t *testing.T) {
	f := newAPIFixture(t)
	tenantToken := tenantSession(t, f)

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/v1/outlets/import", bytes.NewReader([]byte("not an xlsx")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tenantToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
