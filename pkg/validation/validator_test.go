package validation

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type signupBody struct {
	Name            string `json:"name" binding:"required" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,pwd"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"omitempty,oneof=user guide"`
}

func TestToDetails(t *testing.T) {
	t.Parallel()
	v := validator.New()
	Configure(v)

	err := v.Struct(signupBody{Email: "nope", Password: "short", PasswordConfirm: "other", Role: "root"})
	d := ToDetails(err)

	assert.Equal(t, "is required", d["name"])
	assert.Equal(t, "must be a valid email", d["email"])
	assert.Equal(t, "must be at least 8 characters", d["password"])
	assert.Equal(t, "must match Password", d["passwordConfirm"])
	assert.Equal(t, "must be one of [user, guide]", d["role"])
}

func TestToDetailsPayloadErrors(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ToDetails(nil))
	assert.Equal(t, map[string]string{"payload": "request body is required"}, ToDetails(io.EOF))

	var dst signupBody
	err := json.Unmarshal([]byte(`{"name":`), &dst)
	assert.Contains(t, ToDetails(err), "payload")

	err = json.Unmarshal([]byte(`{"name": 42}`), &dst)
	assert.Equal(t, "has the wrong type", ToDetails(err)["name"])
}
