package flow

import (
	"fmt"
	"html"
	"strings"

	"github.com/jordanhubbard/astrohub/internal/intake"
	"github.com/jordanhubbard/astrohub/internal/numerology"
	"github.com/jordanhubbard/astrohub/internal/report"
)

const cancelHint = "\n\nЕсли ошиблись разделом — введите /cancel."

// Prompts sent right after payment, one per starting state.
const (
	askNatalAll = "Оплата получена ✅\n\n" +
		"Пришли <b>одним сообщением</b> в 4 строки (каждая с новой строки):\n\n" +
		"ФИО\n" +
		"Дата рождения (ДД.ММ.ГГГГ)\n" +
		"Время рождения (ЧЧ:ММ или «не знаю»)\n" +
		"Город и страна\n\n" +
		"Пример:\n" +
		"Иван Иванов\n" +
		"21.09.1999\n" +
		"06:23\n" +
		"Омск, Россия" + cancelHint

	askNatalDate = "Оплата получена ✅\n\nУкажи <b>дату рождения</b> в формате ДД.ММ.ГГГГ. Например: 07.03.1995" + cancelHint

	askPalmPhoto = "Оплата получена ✅\n\nПришли <b>одно чёткое фото правой ладони</b> при хорошем освещении." + cancelHint

	askNumInput = "Оплата получена ✅\n\nНапиши <b>дату рождения и ФИО одной строкой</b> в формате:\n" +
		"<code>ДД.ММ.ГГГГ Имя Фамилия</code>\n\nНапример: <code>21.09.1999 Иван Иванов</code>" + cancelHint

	paymentAlreadyUsed = "Этот платёж уже учтён ✅ Если разбор не пришёл, напишите нам, и мы проверим заказ."
)

// Step-wise natal prompts.
const (
	askNatalTime = "Отлично! Теперь укажи <b>время рождения</b> в формате ЧЧ:ММ.\n" +
		"Если не знаешь точное время — напиши ‘не знаю’."
	askNatalCity = "И последний шаг: <b>город рождения</b> (можно со страной/областью для точности).\n" +
		"Например: ‘Омск, Россия’ или ‘Almaty, Kazakhstan’."
)

// Re-prompts for input of the wrong type.
const (
	repromptPalmPhoto = "Пришли, пожалуйста, <b>фото ладони</b> — одно чёткое изображение при хорошем освещении."
	repromptPalmLost  = "Похоже, фото не найдено. Пришли, пожалуйста, одно чёткое фото правой ладони ещё раз."
	repromptText      = "Сейчас я жду текстовый ответ. Пришли, пожалуйста, данные сообщением."
)

const (
	askPalmContext = "Фото получено ✅\n\n" +
		"Если хочешь — добавь пару строк контекста (возраст, ведущая рука, на что обратить внимание). " +
		"Или напиши ‘пропустить’."
	palmGenerating = "Готовлю разбор по ладони…"
)

// failureTexts are the per-kind pipeline failure messages.
type failureTexts struct {
	parseUser     string
	parseOperator string
	errorUser     string
	errorOperator string
}

var failures = map[report.Kind]failureTexts{
	report.Numerology: {
		parseUser:     "Не удалось распарсить отчёт LLM. Попробуйте ещё раз позднее.",
		parseOperator: "Parse error: LLM вернул не-JSON. Сниппет ответа:\n",
		errorUser:     "Во время генерации отчёта произошла ошибка. Попробуем ещё раз чуть позже.",
		errorOperator: "LLM error: ",
	},
	report.Natal: {
		parseUser:     "Не удалось собрать натальный отчёт. Попробуйте ещё раз позже.",
		parseOperator: "Parse error (Natal): LLM вернул не-JSON. Сниппет:\n",
		errorUser:     "Во время генерации натального отчёта произошла ошибка. Попробуем позже.",
		errorOperator: "LLM error (Natal): ",
	},
	report.Palmistry: {
		parseUser:     "Не удалось собрать разбор по ладони. Попробуем позже.",
		parseOperator: "Parse error (Palm): LLM вернул не-JSON. Сниппет:\n",
		errorUser:     "Во время генерации разбора по ладони произошла ошибка.",
		errorOperator: "LLM error (Palm): ",
	},
}

func paymentAfterCancel(orderID int64) string {
	return fmt.Sprintf("Оплата получена ✅ (заказ #%d), но ввод данных был отменён командой /cancel. "+
		"Напишите нам номер заказа, и мы поможем продолжить.", orderID)
}

func natalAck(n intake.Natal) string {
	t := n.Time.String()
	if t == "" {
		t = "неизвестно"
	}
	return "Спасибо! Я записал данные для Наталки PRO:\n\n" +
		"• ФИО: <code>" + html.EscapeString(n.FullName) + "</code>\n" +
		"• Дата: <code>" + n.Date + "</code>\n" +
		"• Время: <code>" + t + "</code>\n" +
		"• Город: <code>" + html.EscapeString(n.City) + "</code>\n\n" +
		"Готовлю ваш разбор…"
}

func joinDigits(ds []int) string {
	if len(ds) == 0 {
		return "—"
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, ", ")
}

// expressNumerology is the summary sent before the detailed report.
func expressNumerology(fullName, dob string, lifePath int, c numerology.Counts) string {
	ext := numerology.Extend(c)
	var b strings.Builder
	b.WriteString("<b>Нумерологический экспресс-разбор</b>\n\n")
	fmt.Fprintf(&b, "• Имя: <b>%s</b>\n", html.EscapeString(fullName))
	fmt.Fprintf(&b, "• Дата рождения: <b>%s</b>\n", dob)
	fmt.Fprintf(&b, "• Число судьбы: <b>%d</b> — %s\n\n", lifePath, numerology.Meaning(lifePath))
	b.WriteString("Матрица Пифагора:\n<pre>" + html.EscapeString(numerology.Grid(c)) + "</pre>\n\n")
	b.WriteString("Линии и оси матрицы:\n" + html.EscapeString(numerology.LinesSummary(c)) + "\n\n")
	b.WriteString("Числа 1–9 (интерпретация по насыщенности):\n<pre>" + html.EscapeString(numerology.DigitsSummary(c)) + "</pre>\n\n")
	b.WriteString("Отсутствующие числа: " + joinDigits(ext.Missing) + "\n")
	b.WriteString("Доминирующие числа: " + joinDigits(ext.Dominant) + "\n\n")
	b.WriteString("Это краткая версия. Подробный разбор с рекомендациями пришлю следующим сообщением.")
	return b.String()
}
