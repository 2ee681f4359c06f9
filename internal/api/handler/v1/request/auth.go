package request

import (
	"errors"
	"regexp"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	passwordRegexPattern = `^(?=.*[A-Za-z])(?=.*\d).{8,}$`
)

var (
	errInvalidPassword = errors.New("the password must be at least 8 characters and contain 1 letter and 1 number")
	errEmptyPatch      = errors.New("nothing to update")

	passwordExp = regexp2.MustCompile(passwordRegexPattern, regexp2.None)
	usernameExp = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	roles = []interface{}{"ADMIN", "CHEF", "VIEWER", "VERIFICATIONPERIODIQUE"}
)

var passwordRule = validation.By(func(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}

	s, _ := v.(string)
	ok, err := passwordExp.MatchString(s)
	if err != nil || !ok {
		return errInvalidPassword
	}

	return nil
})

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.Password, validation.Required),
	)
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req *CreateUserRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Username, validation.Required, validation.Length(3, 64), validation.Match(usernameExp)),
		validation.Field(&req.Password, validation.Required, passwordRule),
		validation.Field(&req.Role, validation.Required, validation.In(roles...)),
	)
}

type UpdateUserRequest struct {
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (req *UpdateUserRequest) Validate() error {
	if req.Password == nil && req.Role == nil && req.Active == nil {
		return errEmptyPatch
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Password, validation.NilOrNotEmpty, passwordRule),
		validation.Field(&req.Role, validation.NilOrNotEmpty, validation.In(roles...)),
	)
}
