// Package intake turns raw chat text into validated birth data and palm
// context. Validation failures are returned as *ValidationError carrying a
// message that can be shown to the user verbatim.
package intake

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the only accepted date shape (DD.MM.YYYY).
const DateLayout = "02.01.2006"

// ValidationError is a user-facing correction prompt.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var dateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// Date validates a DD.MM.YYYY string that also names a real calendar day.
func Date(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !dateRe.MatchString(s) {
		return "", invalid("Дата указывается как ДД.ММ.ГГГГ, например 21.09.1999.")
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", invalid("Похоже, дата некорректна. Проверь, пожалуйста, и пришли ещё раз.")
	}
	return s, nil
}

// TimeOfDay is a birth time that may be explicitly unknown.
type TimeOfDay struct {
	Hour   int
	Minute int
	Known  bool
}

// String renders HH:MM, or an empty string when unknown.
func (t TimeOfDay) String() string {
	if !t.Known {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalJSON encodes an unknown time as null.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Known {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

var unknownTime = map[string]bool{
	"не знаю":    true,
	"неизвестно": true,
	"нет":        true,
	"-":          true,
	"unknown":    true,
	"?":          true,
}

var timeRe = regexp.MustCompile(`^(\d{1,2})(?:[:.]?(\d{2}))?(?:\s*(утра|вечера|am|pm))?$`)

// Time parses HH:MM, an informal hour with an optional am/pm marker, or an
// unknown synonym.
func Time(s string) (TimeOfDay, error) {
	low := strings.ToLower(strings.TrimSpace(s))
	if unknownTime[low] {
		return TimeOfDay{}, nil
	}
	m := timeRe.FindStringSubmatch(low)
	if m == nil {
		return TimeOfDay{}, invalid("Время укажи так: ЧЧ:ММ (например, 14:25). Можно написать «не знаю».")
	}
	hh, _ := strconv.Atoi(m[1])
	mm := 0
	if m[2] != "" {
		mm, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm", "вечера":
		if hh >= 1 && hh <= 11 {
			hh += 12
		}
	case "am", "утра":
		if hh == 12 {
			hh = 0
		}
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return TimeOfDay{}, invalid("Часы 0–23 и минуты 0–59. Проверь, пожалуйста.")
	}
	return TimeOfDay{Hour: hh, Minute: mm, Known: true}, nil
}

// City accepts any free text of at least two characters.
func City(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < 2 {
		return "", invalid("Нужно указать город и страну. Например: Омск, Россия.")
	}
	return s, nil
}

// Natal is the validated natal-chart input.
type Natal struct {
	FullName string
	Date     string
	Time     TimeOfDay
	City     string
}

// NatalAll parses the four-line natal message: name, date, time or an
// unknown synonym, city. Blank lines are ignored and lines past the fourth
// are dropped.
func NatalAll(text string) (Natal, error) {
	var lines []string
	for _, ln := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) < 4 {
		return Natal{}, invalid("Пожалуйста, пришлите четыре строки: ФИО, дата (ДД.ММ.ГГГГ), время (ЧЧ:ММ или «не знаю»), город и страна.")
	}
	date, err := Date(lines[1])
	if err != nil {
		return Natal{}, err
	}
	tod, err := Time(lines[2])
	if err != nil {
		return Natal{}, err
	}
	city, err := City(lines[3])
	if err != nil {
		return Natal{}, err
	}
	return Natal{FullName: lines[0], Date: date, Time: tod, City: city}, nil
}

// Numerology is the validated numerology input.
type Numerology struct {
	Date     string
	FullName string
}

// NumerologyLine parses "DD.MM.YYYY Name Surname".
func NumerologyLine(text string) (Numerology, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) < 2 || !dateRe.MatchString(parts[0]) {
		return Numerology{}, invalid("Пожалуйста, укажи: ДД.ММ.ГГГГ Имя Фамилия.\nНапример: 07.03.1995 Анна Петрова")
	}
	date, err := Date(parts[0])
	if err != nil {
		return Numerology{}, invalid("Дата выглядит некорректно. Проверь и пришли ещё раз.")
	}
	return Numerology{Date: date, FullName: strings.Join(parts[1:], " ")}, nil
}

// Hand is the dominant-hand hint extracted from palm context.
type Hand string

const (
	HandUnknown Hand = ""
	HandLeft    Hand = "левая"
	HandRight   Hand = "правая"
)

// PalmContext is the optional free text sent after the palm photo.
type PalmContext struct {
	Text     string
	Provided bool
	Dominant Hand
}

var skipWords = map[string]bool{"пропустить": true, "skip": true, "нет": true}

// Palm interprets the palm context message. Skip synonyms yield no context.
// When both hands are mentioned the right hand wins.
func Palm(text string) PalmContext {
	t := strings.TrimSpace(text)
	low := strings.ToLower(t)
	if t == "" || skipWords[low] {
		return PalmContext{}
	}
	pc := PalmContext{Text: t, Provided: true}
	if strings.Contains(low, "левая") || strings.Contains(low, "left") {
		pc.Dominant = HandLeft
	}
	if strings.Contains(low, "правая") || strings.Contains(low, "right") {
		pc.Dominant = HandRight
	}
	return pc
}
