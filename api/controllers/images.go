package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/gallery-backend/api/responses"
	"github.com/angelmondragon/gallery-backend/internal/images"
	pkgerrors "github.com/angelmondragon/gallery-backend/pkg/errors"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

const (
	formFieldImage = "image"
	formFieldTitle = "title"

	// parts beyond this spill to temp files; the body itself is capped by BodyLimit
	multipartMemory = 32 << 20
)

// ListImages returns every image, newest first.
func ListImages(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListImages(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// UploadImage accepts a multipart form with an "image" file part and an
// optional "title" text part.
func UploadImage(svc images.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		input, err := parseUploadForm(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"file_name":  input.FileName,
				"file_bytes": len(input.Data),
			})
		}

		row, err := svc.UploadImage(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, uploadFailure(err))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func parseUploadForm(r *http.Request) (images.UploadInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return images.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "upload body too large")
		}
		return images.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no file uploaded")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		return images.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no file uploaded")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return images.UploadInput{}, pkgerrors.Wrap(pkgerrors.CodeUpload, err, "read uploaded file")
	}
	if len(data) == 0 {
		return images.UploadInput{}, pkgerrors.New(pkgerrors.CodeValidation, "no file uploaded")
	}

	input := images.UploadInput{FileName: header.Filename, Data: data}
	if values, ok := r.MultipartForm.Value[formFieldTitle]; ok && len(values) > 0 {
		title := values[0]
		input.Title = &title
	}
	return input, nil
}

// uploadFailure keeps validation and size errors as they are and reports every
// other failure on the upload route as an upload error.
func uploadFailure(err error) error {
	switch {
	case pkgerrors.Is(err, pkgerrors.CodeValidation),
		pkgerrors.Is(err, pkgerrors.CodePayloadTooLarge),
		pkgerrors.Is(err, pkgerrors.CodeUpload):
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeUpload, err, "upload image")
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
