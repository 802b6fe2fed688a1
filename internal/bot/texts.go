package bot

import "github.com/jordanhubbard/astrohub/internal/report"

const menuIntro = "✨ Добро пожаловать в <b>AstroMagic</b> ✨\n\n" +
	"Мы — команда практикующих астрологов, нумерологов и исследователей эзотерики.\n" +
	"Наша цель — сделать глубокие знания о звёздах, числах и линиях судьбы доступными каждому.\n\n" +
	"Каждый разбор создаётся с вниманием к деталям, с опорой на классические школы и современные методы. " +
	"Вы получаете не просто сухую интерпретацию, а образное и структурированное объяснение того, что скрыто " +
	"в вашей дате рождения, натальной карте или линиях ладони.\n\n" +
	"🔮 Что мы предлагаем:\n" +
	"• <b>Нумерология</b> — ваш уникальный код личности и предназначения.\n" +
	"• <b>Хиромантия</b> — чтение линий судьбы по фото ладони.\n" +
	"• <b>Натальная карта Pro</b> — комплексный астрологический разбор: планеты, дома, аспекты + нумерология.\n\n" +
	"Выберите направление ниже, и мы подготовим для вас персональный разбор с рекомендациями."

const testModeNote = "\n\n<i>Сейчас включён тестовый режим: оплата отключена, доступ выдаётся для проверки флоу.</i>"

const (
	notAllowed     = "Недостаточно прав."
	noOrders       = "Пока заказов нет."
	ordersHeader   = "Последние заказы:"
	paymentNoFlow  = "Оплата получена ✅"
	chooseService  = "Выбирай услугу ⤴️"
	backButton     = "← Назад"
	callbackBack   = "back_home"
	callbackBuyPfx = "buy_"
)

// callbackKinds maps a description screen's callback data to its kind. The
// buy button's data is the same with a "buy_" prefix.
var callbackKinds = map[string]report.Kind{
	"num":   report.Numerology,
	"palm":  report.Palmistry,
	"natal": report.Natal,
}

var menuKeyboard = Keyboard{
	{{Text: "🔢 Нумерология", Data: "num"}},
	{{Text: "🪬 Хиромантия", Data: "palm"}},
	{{Text: "🌌 Натальная карта Pro", Data: "natal"}},
}

var captions = map[report.Kind]string{
	report.Numerology: "🔢 <b>Нумерология</b>\n\n" +
		"Числа — это язык, на котором Вселенная шепчет о наших дарах и уроках. Я рассчитаю ключевые числа (судьбы, души, личности, имени) и разложу по полочкам: сильные стороны, зоны роста и практические шаги.\n\n" +
		"Что ты получишь:\n" +
		"• Краткий портрет на 3–4 абзаца;\n" +
		"• Разбор каждого числа;\n" +
		"• Рекомендации на месяц.\n\n" +
		"Стоимость: <b>90 ⭐</b> (≈ 200 ₽).",
	report.Palmistry: "🪬 <b>Хиромантия</b>\n\n" +
		"Ладонь — живой дневник судьбы. По фото правой руки я рассмотрю линии сердца, головы и жизни, холмы и общий рисунок, чтобы мягко подсветить твои таланты и текущие вызовы.\n\n" +
		"Что нужно от тебя: одно чёткое фото ладони при хорошем свете.\n\n" +
		"Что ты получишь: образный разбор на 3–5 абзацев + практические советы.\n\n" +
		"Стоимость: <b>130 ⭐</b> (≈ 300 ₽).",
	report.Natal: "🌌 <b>Натальная карта Pro</b>\n\n" +
		"Твой личный небесный атлас: планеты, знаки, <b>дома</b> и ключевые <b>аспекты</b> + нумерологический штрих-код. Отдельно отмечу ресурсы, риски и мягкие рекомендации на ближайший цикл.\n\n" +
		"Что понадобится: дата, город и — по возможности — точное время рождения.\n" +
		"Отправка данных: <b>одним сообщением</b> в 4 строки — ФИО, дата, время (или «не знаю»), город и страна.\n\n" +
		"Результат: структурированный текст 6–10 абзацев.\n\n" +
		"Стоимость: <b>220 ⭐</b> (≈ 500 ₽).",
}
