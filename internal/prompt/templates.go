package prompt

// Persona is the shared system message for every report kind.
const Persona = "Вы — команда AstroMagic: практикующие астрологи и нумерологи. " +
	"Готовьте развёрнутый, художественно-эзотерический, но структурированный отчёт на русском, " +
	"используя ТОЛЬКО переданные данные. Проверяйте согласованность и мягко отмечайте расхождения. " +
	"Без фатализма и без медицинских/финансовых советов."

const numerologyShape = "Правила вывода: верните СТРОГО один JSON-объект ТОЛЬКО в теле ответа,\n" +
	"без markdown, без пояснений, без комментариев, без подсказок языка.\n" +
	"JSON должен быть МИНИФИЦИРОВАН (в одну строку, без пробелов и переносов),\n" +
	"чтобы исключить артефакты форматирования.\n" +
	`{"title": str,` +
	`"summary": str,` +
	`"life_path":{"value":int,"meaning":str,"strengths":[str],"risks":[str],"advice":[str]},` +
	`"pythagoras_matrix":{` +
	`"grid_text": str,` +
	`"lines_overview":[{"axis":str,"total":int,"tone":str,"comment":str}],` +
	`"digits":[{"digit":int,"count":int,"meaning":str,"advice":str}],` +
	`"missing":[int],"dominant":[int]` +
	`},` +
	`"practical_recs":{"week":[str],"month":[str],"focus_areas":[str]},` +
	`"data_notes":[str]` +
	`}`

const natalShape = "Правила вывода: верните СТРОГО один JSON-объект ТОЛЬКО в теле ответа,\n" +
	"без markdown/комментариев/подсказок языка. Объект ДОЛЖЕН быть минифицирован (в одну строку).\n" +
	`{"title":str,` +
	`"summary":str,` +
	`"birth":{"full_name":str,"date":str,"time":(str|null),"city":str,"timezone_note":str},` +
	`"chart":{` +
	`"sun":{"sign":str,"comment":str},` +
	`"moon":{"sign":str,"comment":str},` +
	`"ascendant":{"sign":str,"comment":str}` +
	`},` +
	`"houses":[{"house":int,"topic":str,"comment":str}],` +
	`"aspects":[{"pair":str,"type":str,"tightness":str,"meaning":str}],` +
	`"numerology":{"life_path":{"value":int,"comment":str}},` +
	`"practical_recs":{"week":[str],"month":[str],"focus_areas":[str]},` +
	`"data_notes":[str]` +
	`}`

const palmShape = "Верните СТРОГО один JSON-объект ТОЛЬКО в теле ответа, без markdown/комментариев. " +
	"JSON ДОЛЖЕН быть минифицирован (в одну строку). Структура:" +
	`{"title":str,` +
	`"summary":str,` +
	`"hand_overview":{"dominant":(str|null),"general":[str]},` +
	`"lines":{` +
	`"heart":{"tone":str,"details":[str]},` +
	`"head":{"tone":str,"details":[str]},` +
	`"life":{"tone":str,"details":[str]},` +
	`"fate":{"present":bool,"details":[str]}` +
	`},` +
	`"mounts":[{"name":str,"expression":str,"comment":str}],` +
	`"patterns":[str],` +
	`"practical_recs":{"week":[str],"month":[str],"focus_areas":[str]},` +
	`"data_notes":[str]` +
	`}`

const (
	numerologyIntro = "Ниже — данные пользователя для нумерологического разбора. " +
		"Проверьте согласованность и подготовьте JSON отчёт.\n\n"

	natalIntro = "Данные пользователя для астрологического разбора (Наталка PRO). " +
		"Проверьте согласованность и подготовьте JSON отчёт по схеме.\n\n"
	natalHint = "timezone_hint: если время неизвестно — добавьте в data_notes допущение про полдень/локальную зону."

	palmIntro = "Хиромантия (разбор по фото ладони). " +
		"Напишите образный, но структурированный отчёт на русском по схеме JSON. " +
		"Не давайте медицинских/финансовых советов. "
	palmBlind   = "Учитывайте, что модель НЕ видит само фото; используйте мягкие формулировки и допускайте неопределённость.\n\n"
	palmSighted = "Фото ладони приложено к сообщению; опирайтесь на то, что видно, и допускайте неопределённость.\n\n"
	palmHint    = "Пояснение: если чего-то нельзя утверждать без визуального подтверждения, добавляйте сноску в data_notes."
)
