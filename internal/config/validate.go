package config

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/spec/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator with the config rules registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names ("scaffoldPaths[0]") instead of Go names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("scaffoldpath", func(fl validator.FieldLevel) bool {
			return ValidScaffoldTemplate(fl.Field().String())
		})
		_ = v.RegisterValidation("slugtemplate", func(fl validator.FieldLevel) bool {
			return strings.Contains(fl.Field().String(), "{slug}")
		})
		_ = v.RegisterValidation("docname", func(fl validator.FieldLevel) bool {
			return validDocName(fl.Field().String())
		})
		_ = v.RegisterValidation("reldir", func(fl validator.FieldLevel) bool {
			return validRelDir(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// ValidScaffoldTemplate reports whether a scaffold path template is a relative
// path containing {slug} and no "..".
func ValidScaffoldTemplate(p string) bool {
	if !strings.Contains(p, "{slug}") {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) || filepath.IsAbs(p) || strings.Contains(p, "..") {
		return false
	}
	return true
}

// validDocName reports whether a doc template is a plain file name.
func validDocName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// validRelDir reports whether dir is relative and stays under the repository root.
func validRelDir(dir string) bool {
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "/") {
		return false
	}
	for _, part := range strings.FieldsFunc(dir, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return false
		}
	}
	return true
}

// ruleMessages maps validation tags to user-facing messages.
var ruleMessages = map[string]string{
	"scaffoldpath": "Each scaffoldPath must be a relative path containing {slug} and not contain ..",
	"slugtemplate": "branchFormat must contain {slug}",
	"docname":      "Each docTemplate must be a plain file name",
	"reldir":       "docsDir must be a relative path inside the repository",
	"gte":          "schemaVersion must be a positive integer",
}

// Validate checks cfg and returns a CONFIG_ERROR describing every violation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.NewConfig("Invalid configuration: config is nil")
	}

	err := validatorInstance().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewConfig(fmt.Sprintf("Invalid configuration: %v", err))
	}

	msgs := make([]string, 0, len(verrs))
	seen := make(map[string]bool)
	for _, fe := range verrs {
		msg, ok := ruleMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is %s", fe.Field(), fe.Tag())
		}
		if !seen[msg] {
			seen[msg] = true
			msgs = append(msgs, msg)
		}
	}

	return &errors.SpecError{
		Code:    errors.ErrConfig,
		Message: "Invalid configuration: " + strings.Join(msgs, ", "),
		Details: map[string]any{"violations": msgs},
	}
}
