package validation

import "unicode"

// PasswordProblems lists what a password is missing. An empty result means
// the password is strong enough.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, "be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		problems = append(problems, "be at most 72 characters long")
	}

	var hasLetter, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}
	if !hasLetter {
		problems = append(problems, "contain a letter")
	}
	if !hasNumber {
		problems = append(problems, "contain a number")
	}
	if !hasSpecial {
		problems = append(problems, "contain a special character")
	}
	return problems
}
