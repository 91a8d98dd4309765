package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mark3labs/latch/internal/identify"
	"github.com/mark3labs/latch/internal/language"
)

// schemaValidate carries the custom rules for pipeline documents:
// regexes must compile, type tags, stages and languages must be known,
// version strings must parse.
var schemaValidate *validator.Validate

func init() {
	schemaValidate = validator.New()

	// Report field paths with their yaml names so messages read like
	// the document: repos[0].hooks[1].id instead of Repos[0].Hooks[1].ID.
	schemaValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = schemaValidate.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
		_, err := regexp.Compile(fl.Field().String())
		return err == nil
	})
	_ = schemaValidate.RegisterValidation("typetag", func(fl validator.FieldLevel) bool {
		return identify.KnownTag(fl.Field().String())
	})
	_ = schemaValidate.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return KnownStage(fl.Field().String())
	})
	_ = schemaValidate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return language.Known(fl.Field().String())
	})
	_ = schemaValidate.RegisterValidation("version", func(fl validator.FieldLevel) bool {
		_, err := parseVersion(fl.Field().String())
		return err == nil
	})
}

// SchemaError lists every problem found in a pipeline document.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("hook configuration is invalid:")
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	return b.String()
}

// Validate checks the document against the schema: every group has a
// repo locator, remote groups carry a rev, hooks is a non-empty
// sequence, every hook has an id, local hooks are fully specified, and
// all patterns, tags, stages and languages are usable. All problems
// are reported together.
func (c *Config) Validate() error {
	var issues []string

	if err := schemaValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		for _, fe := range verrs {
			issues = append(issues, describeFieldError(fe))
		}
	}

	issues = append(issues, c.crossChecks()...)

	if len(issues) > 0 {
		return &SchemaError{Issues: issues}
	}
	return nil
}

// crossChecks covers rules that span fields: rev presence per locator
// kind, local hook completeness, meta hook ids.
func (c *Config) crossChecks() []string {
	var issues []string
	for i, repo := range c.Repos {
		at := fmt.Sprintf("repos[%d] (%s)", i, repo.Repo)

		if repo.IsRemote() && repo.Rev == "" {
			issues = append(issues, fmt.Sprintf("%s: rev is required for remote repositories", at))
		}

		for j, h := range repo.Hooks {
			hookAt := fmt.Sprintf("%s hooks[%d] (%s)", at, j, h.ID)

			if repo.IsLocal() {
				if h.Name == "" {
					issues = append(issues, hookAt+": local hooks must set name")
				}
				if h.Entry == "" {
					issues = append(issues, hookAt+": local hooks must set entry")
				}
				if h.Language == "" {
					issues = append(issues, hookAt+": local hooks must set language")
				}
			}

			if repo.IsMeta() {
				if _, ok := metaHookIDs[h.ID]; !ok {
					issues = append(issues, fmt.Sprintf("%s: unknown meta hook", hookAt))
				}
			}

			if h.Language == language.Meta && !repo.IsMeta() {
				issues = append(issues, hookAt+": language meta is reserved for the meta repository")
			}
		}
	}
	return issues
}

func describeFieldError(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "Config.")

	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "min":
		return path + " must not be empty"
	case "regexp":
		return fmt.Sprintf("%s: %q is not a valid regular expression", path, fe.Value())
	case "typetag":
		return fmt.Sprintf("%s: %q is not a known file type", path, fe.Value())
	case "stage":
		return fmt.Sprintf("%s: %q is not a known stage", path, fe.Value())
	case "language":
		return fmt.Sprintf("%s: %q is not a supported language (supported: %s)",
			path, fe.Value(), strings.Join(language.Names(), ", "))
	case "version":
		return fmt.Sprintf("%s: %q is not a valid version", path, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}

// CheckMinimumVersion enforces minimum_latch_version against the
// running build. Dev builds (non-numeric versions) always pass.
func (c *Config) CheckMinimumVersion(current string) error {
	if c.MinimumVersion == "" {
		return nil
	}
	want, err := parseVersion(c.MinimumVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum_latch_version: %w", err)
	}
	have, err := parseVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return nil
	}
	if compareVersions(have, want) < 0 {
		return fmt.Errorf("this configuration requires latch >= %s (running %s)", c.MinimumVersion, current)
	}
	return nil
}

func parseVersion(s string) ([]int, error) {
	if s == "" {
		return nil, errors.New("empty version")
	}
	parts := strings.Split(s, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return nums, nil
}

func compareVersions(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
