package intake

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"21.09.1999", false},
		{" 29.02.2000 ", false},
		{"29.02.2001", true},
		{"31.04.1990", true},
		{"1.9.1999", true},
		{"21-09-1999", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Date(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
				assert.NotEmpty(t, ve.Message)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"14:25", "14:25", true},
		{"6:05", "06:05", true},
		{"6", "06:00", true},
		{"7 вечера", "19:00", true},
		{"7pm", "19:00", true},
		{"12 am", "00:00", true},
		{"12pm", "12:00", true},
		{"9.30 утра", "09:30", true},
		{"не знаю", "", false},
		{"Неизвестно", "", false},
		{"-", "", false},
		{"unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Time(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.known, got.Known)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestTime_invalid(t *testing.T) {
	for _, in := range []string{"25:00", "14:60", "noon", "14:2"} {
		_, err := Time(in)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "%q: want ValidationError, got %v", in, err)
	}
}

func TestTimeOfDay_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(TimeOfDay{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	b, err = json.Marshal(TimeOfDay{Hour: 6, Minute: 23, Known: true})
	require.NoError(t, err)
	assert.Equal(t, `"06:23"`, string(b))
}

func TestCity(t *testing.T) {
	_, err := City("О")
	assert.Error(t, err)
	got, err := City("  Омск, Россия ")
	require.NoError(t, err)
	assert.Equal(t, "Омск, Россия", got)
}

func TestNatalAll(t *testing.T) {
	n, err := NatalAll("Иван Иванов\n\n21.09.1999\r\n06:23\nОмск, Россия\n")
	require.NoError(t, err)
	assert.Equal(t, Natal{
		FullName: "Иван Иванов",
		Date:     "21.09.1999",
		Time:     TimeOfDay{Hour: 6, Minute: 23, Known: true},
		City:     "Омск, Россия",
	}, n)

	n, err = NatalAll("Анна\n07.03.1995\nне знаю\nAlmaty, Kazakhstan\nextra line")
	require.NoError(t, err)
	assert.False(t, n.Time.Known)
	assert.Equal(t, "Almaty, Kazakhstan", n.City)
}

func TestNatalAll_errors(t *testing.T) {
	tests := map[string]string{
		"three lines":   "Иван\n21.09.1999\n06:23",
		"bad date":      "Иван\n1999-09-21\n06:23\nОмск",
		"bad time":      "Иван\n21.09.1999\n30:00\nОмск",
		"short city":    "Иван\n21.09.1999\n06:23\nО",
		"empty message": "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NatalAll(in)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
		})
	}
}

func TestNumerologyLine(t *testing.T) {
	n, err := NumerologyLine("21.09.1999   Иван  Иванов")
	require.NoError(t, err)
	assert.Equal(t, Numerology{Date: "21.09.1999", FullName: "Иван Иванов"}, n)

	for _, in := range []string{"21.09.1999", "Иван 21.09.1999", "32.01.1999 Иван"} {
		_, err := NumerologyLine(in)
		assert.Error(t, err, in)
	}
}

func TestPalm(t *testing.T) {
	assert.Equal(t, PalmContext{}, Palm("пропустить"))
	assert.Equal(t, PalmContext{}, Palm("  Skip "))

	pc := Palm("32 года, ведущая левая")
	assert.True(t, pc.Provided)
	assert.Equal(t, HandLeft, pc.Dominant)

	assert.Equal(t, HandRight, Palm("левая болит, но правая ведущая").Dominant)
	assert.Equal(t, HandRight, Palm("I am right handed").Dominant)
	assert.Equal(t, HandUnknown, Palm("про карьеру").Dominant)
}
