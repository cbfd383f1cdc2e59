package zpl

import (
	"fmt"
	"strings"
)

// Ean8 derives a full 8-digit EAN-8 code from arbitrary input. The last six
// digits found in the input (left-padded with zeros when fewer) are prefixed
// with "0" to form the seven data digits, then the check digit is appended.
// The result is always exactly eight numeric digits.
func Ean8(input string) string {
	data7 := "0" + lastSixDigits(input)
	check, _ := CheckDigit(data7)
	return fmt.Sprintf("%s%d", data7, check)
}

// CheckDigit computes the EAN-8 check digit for seven data digits.
// Odd positions (1, 3, 5, 7) weigh 3, even positions weigh 1;
// check = (10 - sum mod 10) mod 10.
func CheckDigit(data7 string) (int, error) {
	if len(data7) != 7 {
		return 0, fmt.Errorf("ean8: expected 7 data digits, got %d", len(data7))
	}

	sum := 0
	for i, r := range data7 {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("ean8: non-digit character %q at position %d", r, i+1)
		}
		d := int(r - '0')
		if i%2 == 0 {
			sum += 3 * d
		} else {
			sum += d
		}
	}

	return (10 - sum%10) % 10, nil
}

func lastSixDigits(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) > 6 {
		return digits[len(digits)-6:]
	}
	return strings.Repeat("0", 6-len(digits)) + digits
}
