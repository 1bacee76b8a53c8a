package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"postline-server/internal/domain"

	"github.com/rs/zerolog"
)

// multipartMemory is how much of a form is held in memory before the
// standard library spills parts to disk.
const multipartMemory = 8 << 20

var errUploadTooLarge = errors.New("upload too large")

// uploadForm is a parsed multipart request whose files have been spooled to
// the upload directory. The media host removes a file once it is uploaded;
// cleanup removes whatever is left.
type uploadForm struct {
	r      *http.Request
	files  map[string]string
	logger zerolog.Logger
}

type uploader struct {
	dir     string
	maxSize int64
	logger  zerolog.Logger
}

func newUploader(dir string, maxSize int64, logger zerolog.Logger) uploader {
	if dir == "" {
		dir = os.TempDir()
	}
	return uploader{dir: dir, maxSize: maxSize, logger: logger}
}

// parse reads the multipart body and spools every named file field that is
// present. Absent file fields are simply missing from the result.
func (u uploader) parse(w http.ResponseWriter, r *http.Request, fileFields ...string) (*uploadForm, error) {
	if u.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.maxSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, errUploadTooLarge)
		}
		return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, errInvalidBody)
	}

	form := &uploadForm{r: r, files: make(map[string]string), logger: u.logger}
	for _, field := range fileFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			form.cleanup()
			return nil, domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, fmt.Errorf("%s: %w", field, errInvalidBody))
		}

		path, err := u.spool(file, header)
		file.Close()
		if err != nil {
			form.cleanup()
			return nil, domain.Internal(fmt.Errorf("failed to spool %s: %w", field, err))
		}
		form.files[field] = path
	}

	return form, nil
}

func (u uploader) spool(file multipart.File, header *multipart.FileHeader) (string, error) {
	out, err := os.CreateTemp(u.dir, "upload-*"+fileExt(header.Filename))
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}

	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return out.Name(), nil
}

// fileExt keeps a short alphanumeric extension from the client file name.
func fileExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func (f *uploadForm) value(field string) string {
	return f.r.FormValue(field)
}

func (f *uploadForm) file(field string) string {
	return f.files[field]
}

func (f *uploadForm) cleanup() {
	for field, path := range f.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			f.logger.Warn().Err(err).Str("field", field).Msg("failed to remove spooled upload")
		}
	}
	if f.r.MultipartForm != nil {
		f.r.MultipartForm.RemoveAll()
	}
}
