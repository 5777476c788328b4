package validators

import "errors"

var (
	ErrPasswordEmpty   = errors.New("no password provided")
	ErrPasswordTooLong = errors.New("password is too long")
)

// PasswordValidator deliberately has no minimum length or character
// class rules. Accounts migrated from the previous deployment carry
// passwords that would fail any such rule, and those users still need
// to log in.
func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	return nil
}
