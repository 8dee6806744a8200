package services

import (
	"errors"
	"log/slog"
	"net/http"

	"drug_portfolio/portfolio/schema"
	"drug_portfolio/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

// writeError converts an error from a handler or transaction closure into the
// uniform json error body. Uncoded errors become a detail-free 500 so that
// internal failures never leak.
func writeError(w http.ResponseWriter, err error) {
	code := GetResponseCode(err)
	if code == http.StatusInternalServerError {
		var cerr *codedError
		if !errors.As(err, &cerr) {
			utils.WriteJsonError(w, "internal server error", code)
			return
		}
	}
	utils.WriteJsonError(w, err.Error(), code)
}

func checkProgramExists(txn *gorm.DB, programId uuid.UUID) error {
	if _, err := schema.GetProgram(programId, txn); err != nil {
		if errors.Is(err, schema.ErrProgramNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkStudyExists(txn *gorm.DB, studyId uuid.UUID) error {
	if _, err := schema.GetStudy(studyId, txn); err != nil {
		if errors.Is(err, schema.ErrStudyNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

// optionalUUIDFilter parses an optional query parameter that filters on a
// uuid column. A present but malformed value is a 400, not a silent no-match.
func optionalUUIDFilter(r *http.Request, key string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, CodedError(errors.New("invalid "+key), http.StatusBadRequest)
	}
	return &id, nil
}
