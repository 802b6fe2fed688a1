// Package prompt renders validated report inputs into role-tagged messages.
// Output is deterministic: identical input yields byte-identical messages.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jordanhubbard/astrohub/internal/numerology"
	"github.com/jordanhubbard/astrohub/internal/report"
	"github.com/jordanhubbard/astrohub/internal/router"
)

// Input is a validated bundle for one report kind.
type Input interface {
	Kind() report.Kind
	data() string
}

// Numerology carries the collected and derived numerology values.
type Numerology struct {
	FullName string
	DOB      string
	LifePath int
	Counts   numerology.Counts
}

func (Numerology) Kind() report.Kind { return report.Numerology }

func (n Numerology) data() string {
	var b strings.Builder
	b.WriteString(numerologyIntro)
	fmt.Fprintf(&b, "full_name: %s\n", n.FullName)
	fmt.Fprintf(&b, "dob_ddmmyyyy: %s\n", n.DOB)
	fmt.Fprintf(&b, "life_path: %d\n\n", n.LifePath)
	fmt.Fprintf(&b, "pythagoras_counts:\n%s\n\n", compact(n.Counts.Map()))
	fmt.Fprintf(&b, "pythagoras_lines:\n%s\n\n", compact(numerology.LineTotals(n.Counts)))
	fmt.Fprintf(&b, "pythagoras_ext:\n%s\n", compact(numerology.Extend(n.Counts)))
	return b.String()
}

// Natal carries the natal-chart fields. Time is empty when unknown.
type Natal struct {
	FullName string
	Date     string
	Time     string
	City     string
	LifePath int
}

func (Natal) Kind() report.Kind { return report.Natal }

func (n Natal) data() string {
	t := n.Time
	if t == "" {
		t = "unknown"
	}
	var b strings.Builder
	b.WriteString(natalIntro)
	fmt.Fprintf(&b, "full_name: %s\n", n.FullName)
	fmt.Fprintf(&b, "date_ddmmyyyy: %s\n", n.Date)
	fmt.Fprintf(&b, "time_hhmm: %s\n", t)
	fmt.Fprintf(&b, "city_country: %s\n", n.City)
	fmt.Fprintf(&b, "life_path: %d\n", n.LifePath)
	b.WriteString(natalHint)
	return b.String()
}

// Palm carries the palmistry context. FileID is the transport handle of the
// photo, passed as an identifier only.
type Palm struct {
	FullName     string
	DominantHand string
	Context      string
	FileID       string
	// Sighted is set when the photo itself travels with the request.
	Sighted bool
}

func (Palm) Kind() report.Kind { return report.Palmistry }

func (p Palm) data() string {
	var b strings.Builder
	b.WriteString(palmIntro)
	if p.Sighted {
		b.WriteString(palmSighted)
	} else {
		b.WriteString(palmBlind)
	}
	photo := "no"
	if p.FileID != "" {
		photo = "yes"
	}
	fmt.Fprintf(&b, "full_name: %s\n", p.FullName)
	fmt.Fprintf(&b, "dominant_hand: %s\n", p.DominantHand)
	fmt.Fprintf(&b, "user_context: %s\n", p.Context)
	fmt.Fprintf(&b, "photo_provided: %s\n", photo)
	fmt.Fprintf(&b, "telegram_file_id: %s\n", p.FileID)
	b.WriteString(palmHint)
	return b.String()
}

// Shape returns the output-shape instructions for kind.
func Shape(k report.Kind) string {
	switch k {
	case report.Numerology:
		return numerologyShape
	case report.Natal:
		return natalShape
	case report.Palmistry:
		return palmShape
	}
	return ""
}

// Build renders in as persona, output shape and data messages.
func Build(in Input) []router.Message {
	return []router.Message{
		{Role: "system", Content: Persona},
		{Role: "system", Content: Shape(in.Kind())},
		{Role: "user", Content: in.data()},
	}
}

// VisionText is the single text part sent alongside the palm photo: the
// output shape followed by the data message.
func VisionText(p Palm) string {
	p.Sighted = true
	return palmShape + "\n\n" + p.data()
}

// compact serializes v as minified JSON. Map keys come out sorted.
func compact(v any) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(b.String(), "\n")
}
