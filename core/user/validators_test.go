package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_checkPassword(t *testing.T) {
	commonPwdsOnce.Do(loadCommonPasswords)

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 123!xyz", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcd123!xyz", want: pwdComplexityTag},
		{name: "no special", pwd: "Abcd123xyz", want: pwdComplexityTag},
		{name: "similar to username", pwd: "Awesome1!", attrs: []string{"awesome"}, want: pwdAttrSimTag},
		{name: "similar to last name", pwd: "Kinshasa1!", attrs: []string{"", "Kinshasa"}, want: pwdAttrSimTag},
		{name: "valid", pwd: "Xy7$kLm9q", attrs: []string{"john", "doe"}, want: ""},
		{name: "valid (unicode)", pwd: "Éléphant9!", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, tt.attrs...))
		})
	}
}

func Test_passwordErrorText(t *testing.T) {
	assert.Equal(t, "password must contain at least 8 characters", passwordErrorText(pwdMinLenTag))
	assert.Equal(t, pwdAttrSimText, passwordErrorText(pwdAttrSimTag))
}
