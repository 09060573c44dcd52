package user

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	appfs "github.com/trezcool/academia/fs"
)

var (
	sexTag  = "sex"
	sexText = "must be one of: male, female"

	groupTag  = "usergroup"
	groupText = "must be one of: junior, middle, senior"

	unameTag   = "uname"
	unameText  = "only letters, digits and @/./+/-/_ are allowed"
	unameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords []string
	commonPwdsOnce  sync.Once

	// invited_by tree
	errMultipleRoots = "Tree must have only one root user"
	errSelfInvite    = "User can't be invited by himself"
	errTreeViolation = "This connection violates tree structure"
)

// InitValidators registers the users validation tags on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	commonPwdsOnce.Do(loadCommonPasswords)

	_ = validate.RegisterValidation(sexTag, oneOfValidation(Sexes))
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)
	_ = validate.RegisterValidation(groupTag, oneOfValidation(Groups))
	core.RegisterCustomTranslation(validate, translator, groupTag, groupText)
	_ = validate.RegisterValidation(unameTag, func(fl validator.FieldLevel) bool {
		return unameRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, unameTag, unameText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdComplexityTag, pwdComplexityText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdNoCommonTag, pwdNoCommonText)
}

func loadCommonPasswords() {
	file, err := appfs.FS.Open("common-passwords.txt.gz")
	if err != nil {
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()
	if gzRdr, err := gzip.NewReader(file); err == nil {
		scanner := bufio.NewScanner(gzRdr)
		for scanner.Scan() {
			if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
				commonPasswords = append(commonPasswords, strings.ToLower(pwd))
			}
		}
	}
	sort.Strings(commonPasswords)
}

// Custom Validators

func oneOfValidation(choices []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, c := range choices {
			if val == c {
				return true
			}
		}
		return false
	}
}

// userStructValidation does struct level validation on NewUser and UpdateUser structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(usr.Password, usr.UserInput, sl)
	case UpdateUser:
		if usr.Password != "" {
			validatePassword(usr.Password, usr.UserInput, sl)
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func validatePassword(pwd string, in UserInput, sl validator.StructLevel) {
	if tag := checkPassword(pwd, in.Username, in.FirstName, in.LastName, in.Email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

// checkPassword returns the tag of the first violated password rule, "" when pwd is fine.
func checkPassword(pwd string, attrs ...string) string {
	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	// - minLen: 8
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	// - complexity: 1 upper, 1 lower, 1 digit & 1 special
	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		return pwdComplexityTag
	}

	// - no user attrs similarity
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimTag
		}
	}

	// - no common passwords
	if idx := sort.SearchStrings(commonPasswords, lpwd); idx < len(commonPasswords) {
		if match := commonPasswords[idx]; lpwd == match {
			return pwdNoCommonTag
		}
	}
	return ""
}

// ValidateInvitedBy checks that making invitedBy the inviter of usr keeps the users a single tree:
// only one root, no self invitation and no cycle through the invited_by chain.
// usr.ID is 0 for users not created yet.
func (svc *Service) ValidateInvitedBy(ctx context.Context, usr User, invitedBy null.Int) error {
	fieldErr := func(msg string) error {
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "invited_by_id", Error: msg})
	}

	if !invitedBy.Valid {
		roots, err := svc.repo.QueryUsers(ctx, QueryFilter{IsRoot: &trueVal}, nil)
		if err != nil {
			return errors.Wrap(err, "querying root users")
		}
		for _, root := range roots {
			if root.ID != usr.ID {
				return fieldErr(errMultipleRoots)
			}
		}
		return nil
	}

	if usr.ID != 0 && invitedBy.Int == usr.ID {
		return fieldErr(errSelfInvite)
	}

	visited := make(map[int]bool)
	currID := invitedBy.Int
	for {
		if usr.ID != 0 && currID == usr.ID {
			return fieldErr(errTreeViolation)
		}
		if visited[currID] {
			break // pre-existing loop not involving usr
		}
		visited[currID] = true

		curr, err := svc.repo.GetUser(ctx, GetFilter{ID: currID})
		if err != nil {
			if core.IsNotFound(err) {
				if currID == invitedBy.Int {
					return fieldErr("invited_by user does not exist")
				}
				break
			}
			return errors.Wrap(err, "walking invited_by chain")
		}
		if !curr.InvitedByID.Valid {
			break
		}
		currID = curr.InvitedByID.Int
	}
	return nil
}

var trueVal = true
