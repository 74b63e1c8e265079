// Package validation checks user input and turns failures into the messages shown to users.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/harrylevesque/primetrade/internal/models"
)

const (
	MsgCredentialsRequired = "Email and password are required"
	MsgInvalidEmail        = "Invalid email format"
	MsgPasswordTooShort    = "Password must be at least 6 characters long"
	MsgPasswordTooLong     = "Password is too long"
	MsgNameTooLong         = "Name must be less than 100 characters"
	MsgTitleRequired       = "Title is required"
	MsgTitleTooLong        = "Title must be less than 200 characters"
	MsgInvalidStatus       = "Invalid status. Must be: pending, in-progress, or completed"
	MsgNameLength          = "Name must be between 1 and 100 characters"
)

// Error is a failed check. Its message is safe to show to the user.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(msg string) error { return &Error{Message: msg} }

var looseEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register loose_email validator: %v", err))
	}
	if err := v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	return v
}

// Signup is the registration form.
type Signup struct {
	Email    string `validate:"required,loose_email"`
	Password string `validate:"required,min=6,max=128"`
	Name     string `validate:"max=100"`
}

// Login is the sign-in form.
type Login struct {
	Email    string `validate:"required,loose_email"`
	Password string `validate:"required"`
}

// Task is a create or update payload after trimming. Status may be empty.
type Task struct {
	Title  string `validate:"required,max=200"`
	Status string `validate:"omitempty,task_status"`
}

// fieldMessages maps Field.tag to the user message.
var fieldMessages = map[string]string{
	"Email.loose_email":  MsgInvalidEmail,
	"Password.min":       MsgPasswordTooShort,
	"Password.max":       MsgPasswordTooLong,
	"Name.max":           MsgNameTooLong,
	"Title.required":     MsgTitleRequired,
	"Title.max":          MsgTitleTooLong,
	"Status.task_status": MsgInvalidStatus,
}

// Struct validates one of the form types above and returns the first failure as an *Error.
// Missing credentials are reported before any other problem.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" && (fe.Field() == "Email" || fe.Field() == "Password") {
			return fail(MsgCredentialsRequired)
		}
	}
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			return fail(msg)
		}
	}
	return fail(verrs[0].Error())
}

// Email checks the address format.
func Email(email string) error {
	if err := validate.Var(email, "loose_email"); err != nil {
		return fail(MsgInvalidEmail)
	}
	return nil
}

// ProfileName checks a replacement display name after trimming.
func ProfileName(name string) error {
	if err := validate.Var(strings.TrimSpace(name), "required,max=100"); err != nil {
		return fail(MsgNameLength)
	}
	return nil
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Message returns the user message carried by err, if any.
func Message(err error) (string, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Message, true
	}
	return "", false
}
