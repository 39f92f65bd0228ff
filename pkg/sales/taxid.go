package sales

// ValidTaxID checks the 11-digit CPF checksum. Non-digit characters are
// stripped before validation; strings with all digits equal are rejected.
func ValidTaxID(taxID string) bool {
	digits := make([]int, 0, 11)
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}

	if len(digits) != 11 {
		return false
	}

	allEqual := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	if checkDigit(digits[:9], 10) != digits[9] {
		return false
	}
	if checkDigit(digits[:10], 11) != digits[10] {
		return false
	}

	return true
}

// checkDigit computes a weighted mod-11 check digit, with weights starting at
// firstWeight and decreasing by one per position. Remainders 10 and 11 map to 0.
func checkDigit(digits []int, firstWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (firstWeight - i)
	}
	rest := 11 - sum%11
	if rest >= 10 {
		return 0
	}
	return rest
}

// NormalizeTaxID strips everything but digits.
func NormalizeTaxID(taxID string) string {
	out := make([]byte, 0, len(taxID))
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			out = append(out, byte(r))
		}
	}
	return string(out)
}
