// Package numerology derives the life-path number and the Pythagoras
// digit-frequency matrix from a birth date. Everything here is pure.
package numerology

// LifePath sums every digit character of date and collapses the sum by
// repeated digit-summing while it is greater than 9 and not a master
// number (11 or 22).
func LifePath(date string) int {
	sum := 0
	for _, r := range date {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}
	return reduce(sum)
}

func reduce(n int) int {
	for n > 9 && n != 11 && n != 22 {
		s := 0
		for n > 0 {
			s += n % 10
			n /= 10
		}
		n = s
	}
	return n
}

// IsMaster reports whether n is one of the master numbers.
func IsMaster(n int) bool {
	return n == 11 || n == 22
}

// Meaning returns the short description of a life-path number.
func Meaning(n int) string {
	if m, ok := lifePathMeanings[n]; ok {
		return m
	}
	return "Личный путь и опыт через число судьбы."
}
