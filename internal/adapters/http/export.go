package httpadapter

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (rt *Router) exportJobResults(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := rt.reader.GetStatus(r.Context(), jobID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	result, err := rt.reader.GetResults(r.Context(), jobID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	workbook, err := buildResultsWorkbook(job, result)
	if err != nil {
		rt.writeError(w, r, fmt.Errorf("build results workbook: %w", err))
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="results_%s.xlsx"`, jobID))
	if err := workbook.Write(w); err != nil {
		rt.logger.Error("write workbook", "job_id", jobID, "error", err)
	}
}

func buildResultsWorkbook(job *domain.Job, result *domain.JobResult) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSummarySheet(f, job, result); err != nil {
		return nil, err
	}
	if err := writeEntitiesSheet(f, result.Entities); err != nil {
		return nil, err
	}
	if err := writeDomainsSheet(f, result.Domains); err != nil {
		return nil, err
	}

	// The default sheet becomes the summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSummarySheet(f *excelize.File, job *domain.Job, result *domain.JobResult) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Job ID", job.ID},
		{"Document ID", job.DocumentID},
		{"Patient ID", job.PatientID},
		{"Referral ID", job.ReferralID},
		{"Status", string(job.Status)},
		{"Confidence Score", result.ConfidenceScore},
		{"Entities", len(result.Entities)},
		{"Domains", len(result.Domains)},
	}
	if job.CompletedAt != nil {
		rows = append(rows, []any{"Completed At", job.CompletedAt.Format("2006-01-02 15:04:05 MST")})
	}
	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeEntitiesSheet(f *excelize.File, entities []domain.ExtractedEntity) error {
	const sheet = "Entities"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Type", "Text", "Confidence", "SNOMED CT", "ICD-10", "UMLS CUI"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, e := range entities {
		row := []any{string(e.Type), e.Text, e.Confidence, e.SnomedCode, e.ICD10Code, e.UmlsCUI}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeDomainsSheet(f *excelize.File, domains []domain.DomainSuggestion) error {
	const sheet = "Domains"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Domain", "Confidence", "Sources", "Entities"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, d := range domains {
		row := []any{string(d.DomainType), d.Confidence, strings.Join(d.Sources, ", "), len(d.Entities)}
		cell := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
