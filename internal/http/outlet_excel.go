package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"brandhub-core/internal/domain"
)

const outletSheetName = "Outlets"

var outletExcelHeaders = []string{"Outlet Code", "Outlet Name", "Address", "Status"}

// ExportOutlets GET /api/v1/outlets/export
// Streams the partition's outlets as an xlsx workbook.
func (h *OutletHandler) ExportOutlets(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)

	outlets, err := h.outlets.ListOutlets(r.Context(), ac.Schema)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(outletSheetName)
	if err != nil {
		writeFail(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range outletExcelHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			writeFail(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
		if err := f.SetCellValue(outletSheetName, cell, header); err != nil {
			writeFail(w, http.StatusInternalServerError, "failed to build workbook")
			return
		}
	}

	for i, o := range outlets {
		row := i + 2
		values := []any{o.Code, o.Name, o.Address.String, o.Status}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				writeFail(w, http.StatusInternalServerError, "failed to build workbook")
				return
			}
			if err := f.SetCellValue(outletSheetName, cell, v); err != nil {
				writeFail(w, http.StatusInternalServerError, "failed to build workbook")
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="outlets.xlsx"`)
	if err := f.Write(w); err != nil {
		h.logger.Warn("Failed to stream outlet export")
	}
}

// ImportOutlets POST /api/v1/outlets/import
// Accepts an xlsx with the export layout; duplicate codes are skipped.
func (h *OutletHandler) ImportOutlets(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)
	if !ac.HasRole(domain.RoleOwner) {
		writeFail(w, http.StatusForbidden, "forbidden")
		return
	}

	f, err := excelize.OpenReader(r.Body)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid xlsx payload")
		return
	}
	defer f.Close()

	sheet := outletSheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) == 0 {
		writeFail(w, http.StatusBadRequest, "workbook has no outlet rows")
		return
	}

	imported, skipped := 0, 0
	var failures []string
	for i, row := range rows[1:] { // header row first
		code := cellAt(row, 0)
		name := cellAt(row, 1)
		address := cellAt(row, 2)
		if code == "" && name == "" {
			continue
		}
		if code == "" || name == "" {
			skipped++
			failures = append(failures, fmt.Sprintf("row %d: outlet_code and outlet_name are required", i+2))
			continue
		}
		if _, err := h.outlets.CreateOutlet(r.Context(), ac.Schema, code, name, address); err != nil {
			skipped++
			failures = append(failures, fmt.Sprintf("row %d: %s", i+2, code))
			continue
		}
		imported++
	}

	writeOK(w, map[string]any{
		"imported": imported,
		"skipped":  skipped,
		"failures": failures,
	})
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
