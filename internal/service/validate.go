package service

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var errBlank = errors.New("cannot be blank")

// UploadInput is one file picked for upload, already read into memory.
type UploadInput struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content []byte `json:"content"`
}

// Validate checks the name and the size limit.
func (in *UploadInput) Validate(maxBytes int64) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.By(notBlank)),
		validation.Field(&in.Content, validation.By(maxSize(maxBytes))),
	)
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return NewValidationErrorFromOzzo(errs)
	}
	return err
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

// maxSize rejects content strictly longer than limit.
func maxSize(limit int64) validation.RuleFunc {
	return func(value interface{}) error {
		content, _ := value.([]byte)
		if int64(len(content)) > limit {
			return ErrFileTooLarge
		}
		return nil
	}
}
