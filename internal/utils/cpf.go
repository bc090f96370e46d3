package utils

import "strings"

// NormalizeCPF keeps only the digits of s, so "529.982.247-25" becomes
// "52998224725".
func NormalizeCPF(s string) string {
	var b strings.Builder
	b.Grow(11)
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ValidCPF reports whether s, already normalized, is an 11-digit CPF with both mod-11 check
// digits correct.  Numbers made of one repeated digit are rejected even
// though their check digits work out.
func ValidCPF(s string) bool {
	if len(s) != 11 {
		return false
	}
	d := make([]int, 11)
	same := true
	for i := 0; i < 11; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d[i] = int(c - '0')
		if d[i] != d[0] {
			same = false
		}
	}
	if same {
		return false
	}
	return cpfCheckDigit(d[:9]) == d[9] && cpfCheckDigit(d[:10]) == d[10]
}

// cpfCheckDigit computes the next check digit for the given prefix with
// weights len+1 down to 2.
func cpfCheckDigit(prefix []int) int {
	sum := 0
	w := len(prefix) + 1
	for _, v := range prefix {
		sum += v * w
		w--
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}
