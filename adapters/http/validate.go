package authhttp

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/PaulFidika/walletauth/core"
	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes the JSON body into dst and validates it. Failures are returned
// as *core.Error with the most specific code for the offending field.
func (s *Service) bind(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return &core.Error{Kind: core.KindBadRequest, Code: core.ErrInvalidRequest.Code, Message: core.ErrInvalidRequest.Message, Err: err}
	}
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		base := core.ErrInvalidRequest
		switch verrs[0].Field() {
		case "address":
			base = core.ErrInvalidAddress
		case "chainId":
			base = core.ErrInvalidChainID
		}
		return &core.Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: err}
	}
	return &core.Error{Kind: core.KindBadRequest, Code: core.ErrInvalidRequest.Code, Message: core.ErrInvalidRequest.Message, Err: err}
}
