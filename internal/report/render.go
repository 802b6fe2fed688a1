package report

import (
	"html"
	"strconv"
	"strings"
)

// Render turns a parsed report object into Telegram HTML. Missing or
// mistyped fields are skipped; an empty result renders as "Готово.".
func Render(k Kind, r map[string]any) string {
	var b builder
	b.header(r)
	switch k {
	case Numerology:
		renderNumerology(&b, r)
	case Natal:
		renderNatal(&b, r)
	case Palmistry:
		renderPalm(&b, r)
	}
	b.recs(obj(r["practical_recs"]))
	notesLabel := "Примечания к данным"
	if k == Palmistry {
		notesLabel = "Примечания"
	}
	b.bullets("<i>"+notesLabel+":</i>", list(r["data_notes"]))

	out := strings.TrimSpace(strings.Join(b.lines, "\n"))
	if out == "" {
		return "Готово."
	}
	return out
}

type builder struct {
	lines []string
}

func (b *builder) add(s ...string) { b.lines = append(b.lines, s...) }

func (b *builder) gap() { b.lines = append(b.lines, "") }

func (b *builder) header(r map[string]any) {
	if t := str(r["title"]); t != "" {
		b.add("<b>" + esc(t) + "</b>")
	}
	if s := str(r["summary"]); s != "" {
		b.add(esc(s))
	}
}

func (b *builder) bullets(heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.gap()
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = "• " + esc(it)
	}
	b.add(heading + "\n" + strings.Join(out, "\n"))
}

func (b *builder) recs(pr map[string]any) {
	if pr == nil {
		return
	}
	b.bullets("<b>Рекомендации на неделю:</b>", list(pr["week"]))
	b.bullets("<b>Рекомендации на месяц:</b>", list(pr["month"]))
	if fa := list(pr["focus_areas"]); len(fa) > 0 {
		b.gap()
		b.add("<b>Фокусы:</b> " + esc(strings.Join(fa, ", ")))
	}
}

func renderNumerology(b *builder, r map[string]any) {
	if lp := obj(r["life_path"]); len(lp) > 0 {
		b.gap()
		b.add("<b>Число судьбы:</b> " + esc(str(lp["value"])) + " — " + esc(str(lp["meaning"])))
		if s := list(lp["strengths"]); len(s) > 0 {
			b.add("<i>Сильные стороны:</i> " + esc(strings.Join(s, ", ")))
		}
		if s := list(lp["risks"]); len(s) > 0 {
			b.add("<i>Риски:</i> " + esc(strings.Join(s, ", ")))
		}
		if s := list(lp["advice"]); len(s) > 0 {
			b.add("<i>Советы:</i> " + esc(strings.Join(s, ", ")))
		}
	}
	pm := obj(r["pythagoras_matrix"])
	if len(pm) == 0 {
		return
	}
	if grid := str(pm["grid_text"]); grid != "" {
		b.gap()
		b.add("<b>Матрица Пифагора</b>:", "<pre>"+esc(grid)+"</pre>")
	}
	var axes []string
	for _, it := range objs(pm["lines_overview"]) {
		axes = append(axes, "• "+esc(str(it["axis"]))+": "+esc(str(it["total"]))+" — "+esc(str(it["tone"]))+". "+esc(str(it["comment"])))
	}
	if len(axes) > 0 {
		b.gap()
		b.add("<b>Линии и оси:</b>\n" + strings.Join(axes, "\n"))
	}
}

func renderNatal(b *builder, r map[string]any) {
	if birth := obj(r["birth"]); len(birth) > 0 {
		tm := str(birth["time"])
		if tm == "" {
			tm = "неизвестно"
		}
		b.gap()
		b.add("<b>Исходные данные:</b>")
		b.add("• " + esc(str(birth["full_name"])+" — "+str(birth["date"])+" "+tm+" — "+str(birth["city"])))
		if tz := str(birth["timezone_note"]); tz != "" {
			b.add("<i>" + esc(tz) + "</i>")
		}
	}
	if chart := obj(r["chart"]); len(chart) > 0 {
		b.gap()
		b.add("<b>Карта:</b>")
		for _, p := range [][2]string{{"sun", "Солнце"}, {"moon", "Луна"}, {"ascendant", "Асцендент"}} {
			node := obj(chart[p[0]])
			sign, cmt := str(node["sign"]), str(node["comment"])
			if sign != "" || cmt != "" {
				b.add("• " + p[1] + ": " + esc(sign) + " — " + esc(cmt))
			}
		}
	}
	if houses := objs(r["houses"]); len(houses) > 0 {
		b.gap()
		b.add("<b>Дома:</b>")
		for _, h := range houses {
			b.add("• Дом " + esc(str(h["house"])) + " — " + esc(str(h["topic"])) + ". " + esc(str(h["comment"])))
		}
	}
	if aspects := objs(r["aspects"]); len(aspects) > 0 {
		b.gap()
		b.add("<b>Ключевые аспекты:</b>")
		for _, a := range aspects {
			b.add("• " + esc(str(a["pair"])+" ("+str(a["type"])+", "+str(a["tightness"])+") — "+str(a["meaning"])))
		}
	}
	if lp := obj(obj(r["numerology"])["life_path"]); len(lp) > 0 {
		b.gap()
		b.add("<b>Число судьбы:</b> " + esc(str(lp["value"])) + " — " + esc(str(lp["comment"])))
	}
}

func renderPalm(b *builder, r map[string]any) {
	if hov := obj(r["hand_overview"]); len(hov) > 0 {
		b.gap()
		if dom := str(hov["dominant"]); dom != "" {
			b.add("<b>Ведущая рука:</b> " + esc(dom))
		}
		if gen := list(hov["general"]); len(gen) > 0 {
			b.add("<b>Общее впечатление:</b>")
			for _, g := range gen {
				b.add("• " + esc(g))
			}
		}
	}
	if lines := obj(r["lines"]); len(lines) > 0 {
		b.gap()
		b.add("<b>Линии:</b>")
		for _, p := range [][2]string{{"heart", "Сердца"}, {"head", "Головы"}, {"life", "Жизни"}} {
			node := obj(lines[p[0]])
			tone, dets := str(node["tone"]), list(node["details"])
			if tone == "" && len(dets) == 0 {
				continue
			}
			b.add("• " + p[1] + ": " + esc(tone))
			for _, d := range dets {
				b.add("   — " + esc(d))
			}
		}
		if fate := obj(lines["fate"]); len(fate) > 0 {
			present, _ := fate["present"].(bool)
			if present {
				b.add("• Судьбы: есть")
			} else {
				b.add("• Судьбы: не выражена/неопределима")
			}
			for _, d := range list(fate["details"]) {
				b.add("   — " + esc(d))
			}
		}
	}
	if mounts := objs(r["mounts"]); len(mounts) > 0 {
		b.gap()
		b.add("<b>Холмы:</b>")
		for _, m := range mounts {
			b.add("• " + esc(str(m["name"])+": "+str(m["expression"])+" — "+str(m["comment"])))
		}
	}
	b.bullets("<b>Особые рисунки:</b>", list(r["patterns"]))
}

func esc(s string) string { return html.EscapeString(s) }

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(list(t), ", ")
	default:
		return ""
	}
}

func list(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := str(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func objs(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
