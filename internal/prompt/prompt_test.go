package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/astrohub/internal/numerology"
	"github.com/jordanhubbard/astrohub/internal/report"
)

func numerologyInput() Numerology {
	return Numerology{
		FullName: "Анна Петрова",
		DOB:      "21.09.1999",
		LifePath: numerology.LifePath("21.09.1999"),
		Counts:   numerology.CountDigits("21.09.1999"),
	}
}

func TestBuild_numerology(t *testing.T) {
	msgs := Build(numerologyInput())
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, Persona, msgs[0].Content)
	assert.Equal(t, "system", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, `"pythagoras_matrix"`)
	assert.Equal(t, "user", msgs[2].Role)

	data := msgs[2].Content
	assert.Contains(t, data, "full_name: Анна Петрова\n")
	assert.Contains(t, data, "dob_ddmmyyyy: 21.09.1999\n")
	assert.Contains(t, data, "life_path: 4\n")
	assert.Contains(t, data, `{"1":2,"2":1,"3":0,"4":0,"5":0,"6":0,"7":0,"8":0,"9":4}`)
	assert.Contains(t, data, `"diag_159":6`)
	assert.Contains(t, data, `{"missing":[3,4,5,6,7,8],"dominant":[9]}`)
}

func TestBuild_deterministic(t *testing.T) {
	a := Build(numerologyInput())
	for i := 0; i < 20; i++ {
		assert.Equal(t, a, Build(numerologyInput()))
	}
}

func TestBuild_natal(t *testing.T) {
	msgs := Build(Natal{FullName: "Иван", Date: "01.02.1990", City: "Казань, Россия", LifePath: 22})
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Content, `"ascendant"`)
	assert.Contains(t, msgs[2].Content, "time_hhmm: unknown\n")
	assert.Contains(t, msgs[2].Content, "city_country: Казань, Россия\n")
	assert.True(t, strings.HasSuffix(msgs[2].Content, natalHint))

	msgs = Build(Natal{FullName: "Иван", Date: "01.02.1990", Time: "07:30", City: "Казань"})
	assert.Contains(t, msgs[2].Content, "time_hhmm: 07:30\n")
}

func TestBuild_palm(t *testing.T) {
	msgs := Build(Palm{DominantHand: "правая", Context: "правая рука", FileID: "AgAD"})
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Content, `"mounts"`)
	data := msgs[2].Content
	assert.Contains(t, data, "photo_provided: yes\n")
	assert.Contains(t, data, "telegram_file_id: AgAD\n")
	assert.Contains(t, data, "НЕ видит само фото")

	data = Build(Palm{})[2].Content
	assert.Contains(t, data, "photo_provided: no\n")
}

func TestVisionText(t *testing.T) {
	text := VisionText(Palm{FileID: "AgAD"})
	assert.True(t, strings.HasPrefix(text, palmShape))
	assert.Contains(t, text, "приложено к сообщению")
	assert.NotContains(t, text, "НЕ видит")
}

func TestShape(t *testing.T) {
	for _, k := range report.Kinds {
		assert.NotEmpty(t, Shape(k), k)
	}
	assert.Empty(t, Shape(report.Kind("tarot")))
}
