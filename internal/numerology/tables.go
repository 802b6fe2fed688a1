package numerology

var lifePathMeanings = map[int]string{
	1:  "Лидерство, самостоятельность, импульс к началу.",
	2:  "Дипломатия, партнёрство, чуткость.",
	3:  "Коммуникация, творчество, выражение себя.",
	4:  "Структура, дисциплина, надёжность.",
	5:  "Свобода, перемены, путешествия, гибкость.",
	6:  "Забота, семья, красота, ответственность.",
	7:  "Аналитика, духовность, глубокие смыслы.",
	8:  "Амбиции, ресурсы, управление и влияние.",
	9:  "Служение, гуманизм, завершение циклов.",
	11: "Мастер-число интуиции и вдохновения.",
	22: "Мастер-число созидателя больших проектов.",
}

// digitMeanings[d][tier], tier 0..4.
var digitMeanings = [10][5]string{
	1: {
		"нехватка инициативы; важно тренировать самостоятельность и личные решения",
		"искра воли и личного импульса; хватит на старт небольших дел",
		"стабильная воля и уверенность; хорошие лидерские зачатки",
		"сильный характер и напор; важно помнить об экологичности",
		"очень мощная воля; следи за тактом и гибкостью",
	},
	2: {
		"эмоциональная сдержанность; развивать эмпатию и такт",
		"деликатность и чуткость к людям",
		"хорошая эмоциональная проводимость и дипломатия",
		"яркая эмоциональность; беречь границы",
		"сверхчувствительность; нужна гигиена эмоций",
	},
	3: {
		"скромность в самовыражении; развивать голос и стиль",
		"творческая искра и чувство слова",
		"легкость общения и идей",
		"яркое самовыражение; уместны творческие проекты",
		"избыток говорения; полезно структурировать поток",
	},
	4: {
		"слабая любовь к рутине; стоит вырастить систему",
		"базовая организованность",
		"надёжность и дисциплина",
		"сильная опора на порядок; не перегибать с контролем",
		"гиперконтроль; тренировать гибкость",
	},
	5: {
		"бережное отношение к ресурсам; важно накапливать силы",
		"живость и интерес к новому",
		"хороший тонус и любопытство",
		"высокая энергия; следить за режимом",
		"перегрев; выстраивать ритм и отдых",
	},
	6: {
		"фокус на собственных задачах; растить чувство дома",
		"забота о близких и вкус к красоте",
		"надёжность и семейность",
		"высокая ответственность; следить за балансом обязанностей",
		"риск жить только долгами/обязательствами; добавь радости",
	},
	7: {
		"нехватка пауз и анализа; добавь размышлений",
		"интерес к глубине и смыслам",
		"аналитичность и внутренняя опора",
		"сильная потребность уединяться; беречь баланс",
		"избыточная закрытость; полезны практики доверия",
	},
	8: {
		"важно учиться обращаться с ресурсами",
		"базовые управленческие навыки",
		"хорошее чувство ресурса и влияния",
		"сильные амбиции; стоит беречь этику",
		"перенасыщение властью; держать экологичные рамки",
	},
	9: {
		"фокус на личном; стоит развивать сострадание",
		"чувство общего и эмпатия",
		"гуманизм и широта взглядов",
		"сильная миссионерская нота; беречь выгорание",
		"растворение в служении; помнить о себе",
	},
}
