package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lindale-isd/districtops/internal/importer"
	"github.com/lindale-isd/districtops/internal/logging"
	"github.com/lindale-isd/districtops/internal/mapper"
	"github.com/lindale-isd/districtops/internal/registry"
	"github.com/lindale-isd/districtops/internal/sheet"
)

// templateSummary is the catalog entry returned by the template list.
type templateSummary struct {
	EntityType string   `json:"entityType"`
	Label      string   `json:"label"`
	Fields     []string `json:"fields"`
	Required   []string `json:"required"`
}

// handleListTemplates returns the import template catalog.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	all := registry.All()
	out := make([]templateSummary, 0, len(all))
	for _, tpl := range all {
		out = append(out, templateSummary{
			EntityType: tpl.EntityType,
			Label:      tpl.Label,
			Fields:     tpl.FieldNames(),
			Required:   tpl.RequiredFields(),
		})
	}
	s.writeJSON(w, out)
}

// handleGetTemplate returns one template with full field specs.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := registry.Get(chi.URLParam(r, "entityType"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.writeJSON(w, tpl)
}

// handleDownloadWorkbook streams the two-sheet starter workbook for an
// entity type.
func (s *Server) handleDownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	tpl, err := registry.Get(entityType)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	f, err := sheet.TemplateWorkbook(tpl)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entityType+"_template.xlsx"))
	if err := f.Write(w); err != nil {
		s.logger.Error("writing workbook failed", "error", err.Error())
	}
}

// uploadedFile reads the multipart upload from the request, capped at
// the configured size.
func (s *Server) uploadedFile(r *http.Request) (name string, data []byte, err error) {
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		return "", nil, &importer.FileParseError{Reason: "invalid multipart form: " + err.Error()}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, &importer.FileParseError{Reason: "missing file field"}
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, s.cfg.Import.MaxFileSize+1))
	if err != nil {
		return "", nil, &importer.FileParseError{Reason: "reading upload: " + err.Error()}
	}
	if int64(len(data)) > s.cfg.Import.MaxFileSize {
		return "", nil, &importer.FileParseError{
			Reason: fmt.Sprintf("file exceeds %dMB limit", s.cfg.Import.MaxFileSize/(1024*1024)),
		}
	}
	logging.FromContext(r.Context()).Debug("file received",
		"phase", string(importer.PhaseUploading),
		"file_name", header.Filename,
		"bytes", len(data),
	)
	return header.Filename, data, nil
}

// handleProposeMapping parses an upload's header row and proposes a
// column mapping for review.
func (s *Server) handleProposeMapping(w http.ResponseWriter, r *http.Request) {
	tpl, err := registry.Get(chi.URLParam(r, "entityType"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	fileName, data, err := s.uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	headers, rows, err := sheet.Parse(fileName, data)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	mapping := mapper.Propose(headers, tpl)
	logging.FromContext(r.Context()).Info("mapping proposed",
		"phase", string(importer.PhaseMapping),
		"entity_type", tpl.EntityType,
		"mapped", mapping.MappedCount(),
		"headers", len(headers),
	)
	s.writeJSON(w, map[string]any{
		"fileName":        fileName,
		"sourceHeaders":   headers,
		"rowCount":        len(rows),
		"mapping":         mapping,
		"missingRequired": mapper.MissingRequired(tpl, mapping),
	})
}

// confirmedMapping decodes the mapping form field, falling back to a
// fresh proposal when the client sent none.
func confirmedMapping(r *http.Request, tpl registry.ImportTemplate, headers []string) (mapper.ColumnMapping, error) {
	raw := r.FormValue("mapping")
	if raw == "" {
		return mapper.Propose(headers, tpl), nil
	}

	var mapping mapper.ColumnMapping
	if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
		return mapper.ColumnMapping{}, &importer.FileParseError{Reason: "invalid mapping payload: " + err.Error()}
	}

	// Confidence is recomputed server-side; clients may edit the
	// column choices but never the confidence classification.
	mapping.Confidence = mapper.DetectConfidence(tpl, mapping.Columns)
	return mapping, nil
}

// handleValidate runs validation only, so the user can fix the file
// before anything is written.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	tpl, err := registry.Get(chi.URLParam(r, "entityType"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	fileName, data, err := s.uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	headers, rows, err := sheet.Parse(fileName, data)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	mapping, err := confirmedMapping(r, tpl, headers)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if missing := mapper.MissingRequired(tpl, mapping); len(missing) > 0 {
		s.respondError(w, r, &importer.MissingColumnsError{Columns: missing}, http.StatusUnprocessableEntity)
		return
	}

	vctx, err := s.store.LoadContext(r.Context(), tpl.EntityType)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	summary := importer.Validate(tpl, headers, rows, mapping, vctx)
	s.writeJSON(w, map[string]any{
		"total":  summary.Total,
		"valid":  len(summary.Valid),
		"warned": summary.Warned,
		"errors": summary.Errors,
	})
}

// handleRunImport executes a confirmed import end to end.
func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	tpl, err := registry.Get(entityType)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	fileName, data, err := s.uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	headers, rows, err := sheet.Parse(fileName, data)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	mapping, err := confirmedMapping(r, tpl, headers)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	report, err := s.runner.Run(ctx, importer.RunRequest{
		EntityType: entityType,
		FileName:   fileName,
		Headers:    headers,
		Rows:       rows,
		Mapping:    mapping,
		Strategy:   importer.Strategy(r.FormValue("strategy")),
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.writeJSON(w, report)
}

// handleReconcile runs the vendor feed through the reconciliation
// adapter.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	fileName, data, err := s.uploadedFile(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	headers, rows, err := sheet.Parse(fileName, data)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	result, err := s.adapter.Run(ctx, fileName, headers, rows)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.writeJSON(w, result)
}

// handleListSessions returns recent import sessions, newest first.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sessions, err := s.store.ListSessions(r.Context(), r.URL.Query().Get("entityType"), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, sessions)
}

// handleGetSession returns one session's audit record.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.writeJSON(w, session)
}

// handleExportErrors streams a session's failed rows as CSV.
func (s *Server) handleExportErrors(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	failures, err := s.store.ListErrors(r.Context(), sessionID)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	out, err := sheet.ErrorCSV(failures)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import_errors_"+sessionID+".csv"))
	_, _ = w.Write(out)
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}
