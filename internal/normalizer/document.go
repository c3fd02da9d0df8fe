package normalizer

import "regexp"

var nonDigit = regexp.MustCompile(`[^0-9]`)

// CleanDocument strips every non-digit character from a CPF/CNPJ
func CleanDocument(document string) string {
	return nonDigit.ReplaceAllString(document, "")
}

// CleanZipcode strips every non-digit character from a CEP
func CleanZipcode(zipcode string) string {
	return nonDigit.ReplaceAllString(zipcode, "")
}

// ValidateCPF checks length, repeated digits and both modulus-11 check digits
func ValidateCPF(cpf string) bool {
	cpf = CleanDocument(cpf)
	if len(cpf) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	digits := make([]int, 11)
	for i := range cpf {
		digits[i] = int(cpf[i] - '0')
	}

	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// checkDigit weights the digits from len+1 down to 2
func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	dig := 11 - sum%11
	if dig >= 10 {
		return 0
	}
	return dig
}

// MaskDocument keeps the first 3 and last 2 digits for logging
func MaskDocument(document string) string {
	if len(document) < 6 {
		return "***"
	}
	return document[:3] + "***" + document[len(document)-2:]
}
