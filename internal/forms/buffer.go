package forms

import (
	"errors"
	"fmt"
	"strings"

	"productdash/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrValidation is returned when a form is submitted with missing required fields.
var ErrValidation = errors.New("please fill in all required fields")

var validate = validator.New()

// Buffer holds the form data of the add or edit dialog that is currently open.
type Buffer struct {
	form models.ProductForm
}

// NewAddBuffer returns an empty buffer for the add dialog.
func NewAddBuffer() *Buffer {
	return &Buffer{}
}

// NewEditBuffer returns a buffer prefilled from product. The image starts as a
// reference to the product's stored image so it is never re-uploaded by accident.
func NewEditBuffer(product models.Product) *Buffer {
	return &Buffer{
		form: models.ProductForm{
			Name:        product.Name,
			Description: product.Description,
			Image:       models.RemoteReference(product.Image),
		},
	}
}

// SetName replaces the buffered name.
func (b *Buffer) SetName(name string) {
	b.form.Name = name
}

// SetDescription replaces the buffered description.
func (b *Buffer) SetDescription(description string) {
	b.form.Description = description
}

// SelectFile replaces the image with a newly chosen local file.
func (b *Buffer) SelectFile(fileName string, content []byte) {
	b.form.Image = models.LocalFile(fileName, content)
}

// ClearImage drops any chosen or referenced image.
func (b *Buffer) ClearImage() {
	b.form.Image = models.NoImage()
}

// Form returns a copy of the buffered form data.
func (b *Buffer) Form() models.ProductForm {
	return b.form
}

// Validate checks that name and description are present.
func (b *Buffer) Validate() error {
	return ValidateForm(b.form)
}

// Reset discards the buffered data.
func (b *Buffer) Reset() {
	b.form = models.ProductForm{}
}

// ValidateForm checks the required fields of form. The returned error wraps ErrValidation.
func ValidateForm(form models.ProductForm) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate form: %w", err)
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, strings.ToLower(e.Field()))
	}
	return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(fields, ", "))
}
