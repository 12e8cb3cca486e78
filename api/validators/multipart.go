package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/ims-backend/pkg/errors"
)

// multipartOverhead leaves room for form fields and part headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// ParseMultipart caps the body at maxFileBytes plus form overhead and parses it.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxFileBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxFileBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload too large").WithDetails(map[string]any{"max_bytes": maxFileBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFile reads an uploaded file. A missing file yields nil data so callers
// can produce their own "required" error.
func FormFile(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload").WithDetails(map[string]any{"field": field})
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s exceeds the upload limit", field)).WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s exceeds the upload limit", field)).WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
	}
	return data, nil
}

// FormBool accepts the usual checkbox spellings. Absent means false.
func FormBool(r *http.Request, field string) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.FormValue(field)))
	switch raw {
	case "", "off":
		return false, nil
	case "on", "yes":
		return true, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must be a boolean"})
	}
	return value, nil
}
